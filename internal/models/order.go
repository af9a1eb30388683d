package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. DELIVERED and CANCELLED are terminal.
const (
	OrderStatusPending        = "PENDING"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

// Payment methods and statuses.
const (
	PaymentMethodCOD    = "COD"
	PaymentMethodOnline = "ONLINE"

	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// OrderItem is a frozen snapshot of one ordered menu item, priced from
// the catalog at commit time.
type OrderItem struct {
	MenuItemID primitive.ObjectID `bson:"menuItemId" json:"menuItemId"`
	Name       string             `bson:"name" json:"name"`
	Price      float64            `bson:"price" json:"price"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	ItemTotal  float64            `bson:"itemTotal" json:"itemTotal"`
}

// Order is the persisted order document. Immutable after creation except
// Status and PaymentStatus. OrderNumber is the stable user-facing
// identifier, distinct from the Mongo _id.
type Order struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderNumber   string              `bson:"orderNumber" json:"orderNumber"`
	CustomerID    primitive.ObjectID  `bson:"customerId" json:"customerId"`
	RestaurantID  primitive.ObjectID  `bson:"restaurantId" json:"restaurantId"`
	AddressID     string              `bson:"addressId" json:"addressId"`
	Items         []OrderItem         `bson:"items" json:"items"`
	Bill          Bill                `bson:"bill" json:"bill"`
	CouponID      *primitive.ObjectID `bson:"couponId,omitempty" json:"couponId,omitempty"`
	CouponCode    string              `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	PaymentMethod string              `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus string              `bson:"paymentStatus" json:"paymentStatus"`
	PaymentRef    string              `bson:"paymentRef,omitempty" json:"paymentRef,omitempty"`
	Status        string              `bson:"status" json:"status"`
	Instructions  string              `bson:"instructions,omitempty" json:"instructions,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}

// OrderStatusHistory is an append-only log row. Rows are never mutated
// or deleted.
type OrderStatusHistory struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   primitive.ObjectID `bson:"orderId" json:"orderId"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
