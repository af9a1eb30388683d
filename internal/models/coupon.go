package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discount kinds.
const (
	DiscountFlat       = "FLAT"
	DiscountPercentage = "PERCENTAGE"
)

// Coupon is the persisted discount code. RestaurantID nil means the code
// is valid platform-wide; set, it only applies to that restaurant.
// MaxDiscount 0 means uncapped, MaxUsage 0 means unlimited.
type Coupon struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Code          string              `bson:"code" json:"code"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	DiscountType  string              `bson:"discountType" json:"discountType"`
	DiscountValue float64             `bson:"discountValue" json:"discountValue"`
	MaxDiscount   float64             `bson:"maxDiscount,omitempty" json:"maxDiscount,omitempty"`
	MinOrderValue float64             `bson:"minOrderValue" json:"minOrderValue"`
	RestaurantID  *primitive.ObjectID `bson:"restaurantId,omitempty" json:"restaurantId,omitempty"`
	IsActive      bool                `bson:"isActive" json:"isActive"`
	ValidFrom     time.Time           `bson:"validFrom" json:"validFrom"`
	ValidTill     time.Time           `bson:"validTill" json:"validTill"`
	MaxUsage      int                 `bson:"maxUsage,omitempty" json:"maxUsage,omitempty"`
	CurrentUsage  int                 `bson:"currentUsage" json:"currentUsage"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}
