package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Restaurant status values as stored in the restaurants collection.
const (
	RestaurantOpen   = "OPEN"
	RestaurantClosed = "CLOSED"
)

type Restaurant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Status    string             `bson:"status" json:"status"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	Lat       float64            `bson:"lat" json:"lat"`
	Lng       float64            `bson:"lng" json:"lng"`
	ImagePath string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// MenuItem is the persisted menu entry. Stock is the source of truth;
// InStock is derived for responses and never written.
type MenuItem struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RestaurantID primitive.ObjectID `bson:"restaurantId" json:"restaurantId"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Category     string             `bson:"category,omitempty" json:"category,omitempty"`
	Price        float64            `bson:"price" json:"price"`
	Stock        int                `bson:"stock" json:"stock"`
	InStock      bool               `bson:"-" json:"inStock"`
	ImagePath    string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	IsDeleted    bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// CatalogItem is the slim view the cart and order flows read: current
// price and availability, nothing else.
type CatalogItem struct {
	ID           primitive.ObjectID `json:"id"`
	RestaurantID primitive.ObjectID `json:"restaurantId"`
	Name         string             `json:"name"`
	Price        float64            `json:"price"`
	InStock      bool               `json:"inStock"`
}
