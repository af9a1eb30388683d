package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// Reader is the read-only accessor for restaurant and menu-item truth.
// The cart and order flows treat it as the single source of current
// price, stock and open/closed state.
type Reader struct {
	db *mongo.Database
}

func NewReader(db *mongo.Database) *Reader {
	return &Reader{db: db}
}

// ItemsByIDs batch-fetches the catalog view of the given menu items.
// Deleted items are simply absent from the result.
func (r *Reader) ItemsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.db.Collection("menu_items").Find(ctx, bson.M{
		"_id":       bson.M{"$in": ids},
		"isDeleted": bson.M{"$ne": true},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.MenuItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	views := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		views = append(views, models.CatalogItem{
			ID:           item.ID,
			RestaurantID: item.RestaurantID,
			Name:         item.Name,
			Price:        item.Price,
			InStock:      item.Stock > 0,
		})
	}
	return views, nil
}

// Restaurant returns the restaurant document, or (nil, nil) when it
// does not exist.
func (r *Reader) Restaurant(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.Collection("restaurants").FindOne(ctx, bson.M{"_id": id}).Decode(&restaurant)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}
