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

	"backend/internal/addressbook"
	"backend/internal/apperror"
	"backend/internal/models"
)

type addressRequest struct {
	Title     string `json:"title" binding:"required"`
	Detail    string `json:"detail" binding:"required"`
	Note      string `json:"note"`
	IsDefault bool   `json:"isDefault"`
}

func (r addressRequest) toModel() models.Address {
	return models.Address{
		Title:     r.Title,
		Detail:    r.Detail,
		Note:      r.Note,
		IsDefault: r.IsDefault,
	}
}

type favoriteRequest struct {
	MenuItemID string `json:"menuItemId" binding:"required"`
}

func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /me"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"_id": customerID}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":        user.ID.Hex(),
			"email":     user.Email,
			"name":      user.Name,
			"phone":     user.Phone,
			"addresses": user.Addresses,
			"createdAt": user.CreatedAt,
			"updatedAt": user.UpdatedAt,
		})
	}
}

func GetUserAddresses(book *addressbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /me/addresses"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		addresses, err := book.List(ctx, customerID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"addresses": addresses})
	}
}

func CreateUserAddress(book *addressbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /me/addresses"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		address, err := book.Add(ctx, customerID, req.toModel())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"address": address})
	}
}

func UpdateUserAddress(book *addressbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /me/addresses/:id"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		address, err := book.Update(ctx, customerID, addressID, req.toModel())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"address": address})
	}
}

func DeleteUserAddress(book *addressbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /me/addresses/:id"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := book.Remove(ctx, customerID, addressID); err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
	}
}

func GetUserFavorites(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /me/favorites"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"_id": customerID}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		if len(user.Favorites) == 0 {
			c.JSON(http.StatusOK, gin.H{"data": []models.MenuItem{}})
			return
		}

		cursor, err := db.Collection("menu_items").Find(ctx, bson.M{
			"_id":       bson.M{"$in": user.Favorites},
			"isDeleted": bson.M{"$ne": true},
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		defer cursor.Close(ctx)

		items := make([]models.MenuItem, 0, len(user.Favorites))
		if err := cursor.All(ctx, &items); err != nil {
			respondServiceError(c, route, err)
			return
		}

		// Favorites come back in the order they were saved; deleted
		// items silently drop out.
		itemByID := make(map[primitive.ObjectID]models.MenuItem, len(items))
		for _, item := range items {
			item.InStock = item.Stock > 0
			itemByID[item.ID] = item
		}
		ordered := make([]models.MenuItem, 0, len(items))
		for _, favoriteID := range user.Favorites {
			if item, exists := itemByID[favoriteID]; exists {
				ordered = append(ordered, item)
			}
		}

		c.JSON(http.StatusOK, gin.H{"data": ordered})
	}
}

func AddUserFavorite(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /me/favorites"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req favoriteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		menuItemID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.MenuItemID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid menuItemId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := requireMenuItem(ctx, db, menuItemID); err != nil {
			respondServiceError(c, route, err)
			return
		}

		_, err = db.Collection("users").UpdateByID(ctx, customerID, bson.M{
			"$addToSet": bson.M{"favorites": menuItemID},
			"$set":      bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "favorite updated"})
	}
}

func DeleteUserFavorite(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /me/favorites/:menuItemId"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		menuItemID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("menuItemId")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid menuItemId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err = db.Collection("users").UpdateByID(ctx, customerID, bson.M{
			"$pull": bson.M{"favorites": menuItemID},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "favorite updated"})
	}
}

// requireMenuItem verifies the menu item exists and is not soft
// deleted.
func requireMenuItem(ctx context.Context, db *mongo.Database, menuItemID primitive.ObjectID) error {
	err := db.Collection("menu_items").FindOne(ctx, bson.M{
		"_id":       menuItemID,
		"isDeleted": bson.M{"$ne": true},
	}).Err()
	if err == mongo.ErrNoDocuments {
		return apperror.BadRequest("invalid menuItemId")
	}
	return err
}
