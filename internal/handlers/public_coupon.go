package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/coupon"
)

// GetCoupons lists the active, unexpired coupons a customer can browse:
// platform-wide codes, plus restaurant-scoped ones when restaurantId is
// given.
func GetCoupons(validator *coupon.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /coupons"
		defer handlePanic(c, route)

		var restaurantID *primitive.ObjectID
		if raw := c.Query("restaurantId"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid restaurantId")
				return
			}
			restaurantID = &id
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		coupons, err := validator.ListValid(ctx, restaurantID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"coupons": coupons})
	}
}
