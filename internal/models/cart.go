package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartSchemaVersion tags every cached cart document. The cache layer
// treats documents with a different version as a miss so the shape can
// evolve without poisoning live sessions.
const CartSchemaVersion = 1

// MaxLineQuantity bounds a single cart line.
const MaxLineQuantity = 10

// CartLine is one selected menu item. Name and Price are snapshots taken
// at add time and healed against the catalog on every read; IsAvailable
// is refreshed on reconciliation and never trusted from the client.
type CartLine struct {
	LineID      string             `json:"lineId"`
	MenuItemID  primitive.ObjectID `json:"menuItemId"`
	Name        string             `json:"name"`
	Price       float64            `json:"price"`
	Quantity    int                `json:"quantity"`
	IsAvailable bool               `json:"isAvailable"`
}

// AppliedCoupon freezes the discount computed at apply time. It is
// re-validated at checkout, never blindly trusted.
type AppliedCoupon struct {
	CouponID       primitive.ObjectID `bson:"couponId" json:"couponId"`
	Code           string             `bson:"code" json:"code"`
	DiscountType   string             `bson:"discountType" json:"discountType"`
	DiscountAmount float64            `bson:"discountAmount" json:"discountAmount"`
}

// Bill is the computed price breakdown. It is derived from lines, coupon
// and the fee schedule; it is never stored on its own.
type Bill struct {
	ItemTotal    float64 `bson:"itemTotal" json:"itemTotal"`
	GST          float64 `bson:"gst" json:"gst"`
	DeliveryFee  float64 `bson:"deliveryFee" json:"deliveryFee"`
	PackagingFee float64 `bson:"packagingFee" json:"packagingFee"`
	Discount     float64 `bson:"discount" json:"discount"`
	Total        float64 `bson:"total" json:"total"`
}

// Cart is the per-customer ephemeral document held in the cache. All
// lines belong to one restaurant; cross-restaurant adds are rejected.
type Cart struct {
	SchemaVersion    int                `json:"schemaVersion"`
	CustomerID       primitive.ObjectID `json:"customerId"`
	RestaurantID     primitive.ObjectID `json:"restaurantId"`
	RestaurantStatus string             `json:"restaurantStatus,omitempty"`
	Items            []CartLine         `json:"items"`
	Coupon           *AppliedCoupon     `json:"coupon,omitempty"`
	Bill             Bill               `json:"bill"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// EmptyCart is the canonical zero-value cart returned when no cached
// document exists for the customer.
func EmptyCart(customerID primitive.ObjectID) Cart {
	return Cart{
		SchemaVersion: CartSchemaVersion,
		CustomerID:    customerID,
		Items:         []CartLine{},
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindLine returns the line with the given id, or nil.
func (c *Cart) FindLine(lineID string) *CartLine {
	for i := range c.Items {
		if c.Items[i].LineID == lineID {
			return &c.Items[i]
		}
	}
	return nil
}
