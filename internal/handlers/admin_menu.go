package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type MenuItemCreateRequest struct {
	RestaurantID string  `json:"restaurantId" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Price        float64 `json:"price" binding:"required"`
	Stock        *int    `json:"stock" binding:"required"`
}

type MenuItemUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
}

/*
GET /admin/menu-items
- pagination required, optional restaurantId / category / search filters
*/
func GetAllMenuItems(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(
			c.Query("page"),
			c.Query("limit"),
		)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination params"})
			return
		}

		filter := bson.M{
			"isDeleted": bson.M{"$ne": true},
		}

		if restaurantRaw := strings.TrimSpace(c.Query("restaurantId")); restaurantRaw != "" {
			restaurantID, err := primitive.ObjectIDFromHex(restaurantRaw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurantId"})
				return
			}
			filter["restaurantId"] = restaurantID
		}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = []bson.M{
				{"name": bson.M{"$regex": search, "$options": "i"}},
				{"description": bson.M{"$regex": search, "$options": "i"}},
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("menu_items").CountDocuments(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(limit)))
		}

		opts := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("menu_items").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		items := make([]models.MenuItem, 0)
		if err := cursor.All(ctx, &items); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}
		for i := range items {
			items[i].InStock = items[i].Stock > 0
		}

		c.JSON(http.StatusOK, gin.H{
			"data": items,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

func CreateMenuItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MenuItemCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		restaurantID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.RestaurantID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurantId"})
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
			return
		}
		if req.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		if *req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.Collection("restaurants").FindOne(ctx, bson.M{"_id": restaurantID}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				c.JSON(http.StatusBadRequest, gin.H{"error": "restaurant not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		item := models.MenuItem{
			RestaurantID: restaurantID,
			Name:         name,
			Description:  strings.TrimSpace(req.Description),
			Category:     strings.TrimSpace(req.Category),
			Price:        req.Price,
			Stock:        *req.Stock,
			IsDeleted:    false,
			CreatedAt:    time.Now(),
		}

		res, err := db.Collection("menu_items").InsertOne(ctx, item)
		if err != nil {
			log.Println("CreateMenuItem insert error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		item.ID = res.InsertedID.(primitive.ObjectID)
		item.InStock = item.Stock > 0
		c.JSON(http.StatusCreated, item)
	}
}

func UpdateMenuItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req MenuItemUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		update := bson.M{}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
				return
			}
			update["name"] = name
		}
		if req.Description != nil {
			update["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Category != nil {
			update["category"] = strings.TrimSpace(*req.Category)
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
				return
			}
			update["price"] = *req.Price
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
				return
			}
			update["stock"] = *req.Stock
		}

		if len(update) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.MenuItem
		err = db.Collection("menu_items").
			FindOneAndUpdate(
				ctx,
				bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}},
				bson.M{"$set": update},
				options.FindOneAndUpdate().SetReturnDocument(options.After),
			).
			Decode(&updated)

		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
			return
		}
		if err != nil {
			log.Println("UpdateMenuItem update error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updated.InStock = updated.Stock > 0
		c.JSON(http.StatusOK, updated)
	}
}

/*
DELETE /admin/menu-items/:id
- soft delete; carts referencing the item heal on their next read
*/
func DeleteMenuItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.MenuItem
		err = db.Collection("menu_items").FindOne(ctx, bson.M{
			"_id":       id,
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		res, err := db.Collection("menu_items").UpdateOne(
			ctx,
			bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{
				"isDeleted": true,
				"deletedAt": time.Now(),
			}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
			return
		}

		if err := safeDeleteUpload(existing.ImagePath); err != nil {
			log.Printf("DeleteMenuItem image delete failed: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "menu item deleted"})
	}
}
