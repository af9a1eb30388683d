package handlers

import (
	"context"
	"log"
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

/*
GET /restaurants
- pagination is optional: without page+limit the whole list is returned
*/
func GetRestaurants(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /restaurants"
		defer handlePanic(c, route)

		log.Printf(
			"[%s] hit page=%s limit=%s search=%s",
			route,
			c.Query("page"),
			c.Query("limit"),
			c.Query("search"),
		)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		filter := bson.M{
			"isActive": bson.M{"$ne": false},
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["name"] = bson.M{"$regex": search, "$options": "i"}
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		pageStr := c.Query("page")
		limitStr := c.Query("limit")

		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
				return
			}

			findOptions.
				SetSkip((page - 1) * limit).
				SetLimit(limit)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("restaurants").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		restaurants := make([]models.Restaurant, 0)
		if err := cursor.All(ctx, &restaurants); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		log.Printf("[%s] returning %d restaurants", route, len(restaurants))
		c.JSON(http.StatusOK, restaurants)
	}
}

func GetRestaurant(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /restaurants/:id"
		defer handlePanic(c, route)

		restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var restaurant models.Restaurant
		err = db.Collection("restaurants").FindOne(ctx, bson.M{"_id": restaurantID}).Decode(&restaurant)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "restaurant not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, restaurant)
	}
}

/*
GET /restaurants/:id/menu
- optional ?category= and ?search= filters
*/
func GetRestaurantMenu(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /restaurants/:id/menu"
		defer handlePanic(c, route)

		restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		filter := bson.M{
			"restaurantId": restaurantID,
			"isDeleted":    bson.M{"$ne": true},
		}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["name"] = bson.M{"$regex": search, "$options": "i"}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("menu_items").Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		items := make([]models.MenuItem, 0)
		if err := cursor.All(ctx, &items); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}
		for i := range items {
			items[i].InStock = items[i].Stock > 0
		}

		log.Printf("[%s] returning %d items", route, len(items))
		c.JSON(http.StatusOK, items)
	}
}

// GetMenuCategories lists the distinct category names of a restaurant's
// menu.
func GetMenuCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /restaurants/:id/menu/categories"
		defer handlePanic(c, route)

		restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		values, err := db.Collection("menu_items").Distinct(ctx, "category", bson.M{
			"restaurantId": restaurantID,
			"isDeleted":    bson.M{"$ne": true},
			"category":     bson.M{"$nin": bson.A{nil, ""}},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		categories := make([]string, 0, len(values))
		for _, value := range values {
			if name, ok := value.(string); ok {
				categories = append(categories, name)
			}
		}

		c.JSON(http.StatusOK, gin.H{"categories": categories})
	}
}
