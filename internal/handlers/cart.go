package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/cart"
)

/* =========================
   REQUEST DTOs
========================= */

type addCartItemRequest struct {
	RestaurantID string `json:"restaurantId" binding:"required"`
	ItemID       string `json:"itemId" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

/* =========================
   CART
========================= */

func GetCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		reconciled, err := svc.GetCart(ctx, customerID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, reconciled)
	}
}

func AddCartItem(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		restaurantID, err := primitive.ObjectIDFromHex(req.RestaurantID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid restaurantId")
			return
		}
		itemID, err := primitive.ObjectIDFromHex(req.ItemID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updated, err := svc.AddItem(ctx, customerID, restaurantID, itemID, req.Quantity)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

func UpdateCartItem(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /cart/items/:lineId"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updated, err := svc.UpdateItem(ctx, customerID, c.Param("lineId"), *req.Quantity)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

func RemoveCartItem(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:lineId"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updated, err := svc.RemoveItem(ctx, customerID, c.Param("lineId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

func ClearCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.Clear(ctx, customerID); err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}

/* =========================
   COUPON ON CART
========================= */

func ApplyCoupon(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/coupon"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req applyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updated, err := svc.ApplyCoupon(ctx, customerID, req.Code)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

func RemoveCoupon(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/coupon"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updated, err := svc.RemoveCoupon(ctx, customerID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}
