package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/orders"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderRequest struct {
	AddressID     string `json:"addressId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
	Instructions  string `json:"instructions"`
}

type verifyPaymentRequest struct {
	OrderID    string `json:"orderId" binding:"required"`
	PaymentRef string `json:"paymentRef" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(db *mongo.Database, committer *orders.Committer, checkoutTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		// A timed-out checkout aborts the transaction wholesale; the
		// client gets a retryable error, never a half-committed order.
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkoutTimeout)
		defer cancel()

		order, err := committer.CreateOrder(ctx, customerID, req.AddressID, req.PaymentMethod, req.Instructions)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

/* =========================
   ORDER HISTORY / DETAIL
========================= */

func GetOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.List(ctx, customerID, c.Query("status"), page, limit)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"orders": list, "page": page, "limit": limit})
	}
}

func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, history, err := svc.Detail(ctx, customerID, orderID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order, "statusHistory": history})
	}
}

/* =========================
   CANCEL / REORDER
========================= */

func CancelOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/cancel"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := engine.Cancel(ctx, customerID, orderID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func ReorderOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/reorder"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		newCart, skipped, err := svc.Reorder(ctx, customerID, orderID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"cart": newCart, "skippedItems": skipped})
	}
}

/* =========================
   PAYMENT VERIFY
========================= */

func VerifyPayment(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/payment/verify"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(req.OrderID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := svc.VerifyPayment(ctx, customerID, orderID, req.PaymentRef, req.Signature)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}
