package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
	"backend/internal/orders"
)

type OrderStatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

/*
GET /admin/orders
- pagination required, optional status filter
*/
func GetAllOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(
			c.Query("page"),
			c.Query("limit"),
		)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination params"})
			return
		}

		filter := bson.M{}
		if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
			filter["status"] = status
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("orders").CountDocuments(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		opts := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("orders").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		list := make([]models.Order, 0)
		if err := cursor.All(ctx, &list); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": list,
			"pagination": gin.H{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	}
}

/*
PATCH /admin/orders/:id/status
- manual kitchen-side transition; the same forward-only rules apply, so
  a stale panel cannot move an order backwards or out of a terminal
  state
*/
func UpdateOrderStatus(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req OrderStatusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		target := strings.ToUpper(strings.TrimSpace(req.Status))
		switch target {
		case models.OrderStatusConfirmed,
			models.OrderStatusPreparing,
			models.OrderStatusReady,
			models.OrderStatusOutForDelivery,
			models.OrderStatusDelivered:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := engine.Advance(ctx, orderID, target); err != nil {
			respondServiceError(c, "PATCH /admin/orders/:id/status", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "status updated"})
	}
}
