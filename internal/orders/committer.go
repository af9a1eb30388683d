package orders

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/apperror"
	"backend/internal/billing"
	"backend/internal/models"
	"backend/internal/payment"
)

// CartSource is the slice of the cart service checkout needs.
type CartSource interface {
	GetCart(ctx context.Context, customerID primitive.ObjectID) (models.Cart, error)
	Clear(ctx context.Context, customerID primitive.ObjectID) error
}

// AddressBook answers ownership checks for delivery addresses.
type AddressBook interface {
	BelongsToCustomer(ctx context.Context, customerID primitive.ObjectID, addressID string) (bool, error)
}

// CouponValidator re-runs the full eligibility checks at commit time.
type CouponValidator interface {
	Validate(ctx context.Context, code string, restaurantID primitive.ObjectID, cartTotal float64) (*models.AppliedCoupon, error)
}

// PaymentProvider registers online payments with the gateway.
type PaymentProvider interface {
	CreateIntent(orderNumber string, amount float64) (payment.Intent, error)
}

// CheckoutStore is the persistence surface checkout runs against.
// InTransaction executes fn atomically: when fn returns an error, every
// write it made is rolled back. FindRestaurant and FindMenuItem return
// (nil, nil) on a miss.
type CheckoutStore interface {
	InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
	FindRestaurant(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error)
	FindMenuItem(ctx context.Context, id primitive.ObjectID) (*models.MenuItem, error)
	ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) (bool, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	AppendHistory(ctx context.Context, orderID primitive.ObjectID, status string) error
	IncrementCouponUsage(ctx context.Context, couponID primitive.ObjectID) error
	SetPaymentRef(ctx context.Context, orderID primitive.ObjectID, paymentRef string) error
}

// Committer turns a cart into a persistent order. Everything
// correctness-critical (restaurant state, per-line stock, authoritative
// prices, coupon eligibility, the inserts and the coupon usage bump)
// runs inside one transaction, so a failing precondition aborts
// wholesale and a partial order never exists.
type Committer struct {
	store     CheckoutStore
	carts     CartSource
	addresses AddressBook
	coupons   CouponValidator
	payments  PaymentProvider
	engine    *Engine
	notifier  Notifier
}

func NewCommitter(store CheckoutStore, carts CartSource, addresses AddressBook, coupons CouponValidator, payments PaymentProvider, engine *Engine, notifier Notifier) *Committer {
	return &Committer{
		store:     store,
		carts:     carts,
		addresses: addresses,
		coupons:   coupons,
		payments:  payments,
		engine:    engine,
		notifier:  notifier,
	}
}

// CreateOrder checks out the customer's cart. The reconciled cart is
// only a hint: every price, stock level and the coupon are re-validated
// server-side against the catalog inside the transaction. A coupon that
// passed at apply time may legitimately fail here.
func (c *Committer) CreateOrder(ctx context.Context, customerID primitive.ObjectID, addressID, paymentMethod, instructions string) (*models.Order, error) {
	if paymentMethod != models.PaymentMethodCOD && paymentMethod != models.PaymentMethodOnline {
		return nil, apperror.Validation("paymentMethod", "payment method must be COD or ONLINE")
	}

	cart, err := c.carts.GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperror.NotFound("cart is empty")
	}

	owns, err := c.addresses.BelongsToCustomer(ctx, customerID, addressID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, apperror.Forbidden("address does not belong to this customer")
	}

	// A colliding order number hits the unique index, which aborts the
	// whole transaction server-side. Retrying inside the aborted
	// session cannot work, so the retry re-runs the transaction from
	// scratch with a fresh number.
	var order models.Order
	for attempt := 0; ; attempt++ {
		number := generateOrderNumber()
		err = c.store.InTransaction(ctx, func(txCtx context.Context) error {
			built, err := c.commit(txCtx, customerID, cart, number, addressID, paymentMethod, instructions)
			if err != nil {
				return err
			}
			order = *built
			return nil
		})
		if err == nil {
			break
		}
		if mongo.IsDuplicateKeyError(err) && attempt < 2 {
			log.Printf("[ORDER] order number %s collided, retrying checkout", number)
			continue
		}
		return nil, err
	}

	// Post-commit work happens outside the transaction: the order
	// exists, so failures here are logged, not surfaced as a checkout
	// failure.
	if err := c.carts.Clear(ctx, customerID); err != nil {
		log.Printf("[ORDER] [ERROR] cart clear after checkout failed for %s: %v", customerID.Hex(), err)
	}

	c.notifier.Notify(ctx, "order:created", map[string]string{
		"orderId":     order.ID.Hex(),
		"orderNumber": order.OrderNumber,
	})

	switch paymentMethod {
	case models.PaymentMethodCOD:
		c.engine.ScheduleProgression(ctx, order.ID)
	case models.PaymentMethodOnline:
		intent, err := c.payments.CreateIntent(order.OrderNumber, order.Bill.Total)
		if err != nil {
			log.Printf("[ORDER] [ERROR] payment intent for %s failed: %v", order.OrderNumber, err)
			break
		}
		order.PaymentRef = intent.Reference
		if err := c.store.SetPaymentRef(ctx, order.ID, intent.Reference); err != nil {
			log.Printf("[ORDER] [ERROR] storing payment ref for %s failed: %v", order.OrderNumber, err)
		}
	}

	return &order, nil
}

func (c *Committer) commit(ctx context.Context, customerID primitive.ObjectID, cart models.Cart, orderNumber, addressID, paymentMethod, instructions string) (*models.Order, error) {
	restaurant, err := c.store.FindRestaurant(ctx, cart.RestaurantID)
	if err != nil {
		return nil, err
	}
	if restaurant == nil || !restaurant.IsActive || restaurant.Status != models.RestaurantOpen {
		return nil, apperror.BadRequest("restaurant is currently unavailable")
	}

	orderItems := make([]models.OrderItem, 0, len(cart.Items))
	var itemTotal float64

	for _, line := range cart.Items {
		item, err := c.store.FindMenuItem(ctx, line.MenuItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, apperror.BadRequest("%s is no longer available", line.Name)
		}
		if item.Stock < line.Quantity {
			return nil, apperror.BadRequest("%s is out of stock", item.Name)
		}

		// A concurrent checkout can drain the stock between the read
		// and here; the conditional decrement is the arbiter.
		reserved, err := c.store.ReserveStock(ctx, line.MenuItemID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !reserved {
			return nil, apperror.BadRequest("%s is out of stock", item.Name)
		}

		orderItems = append(orderItems, models.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   line.Quantity,
			ItemTotal:  item.Price * float64(line.Quantity),
		})
		itemTotal += item.Price * float64(line.Quantity)
	}

	var couponID *primitive.ObjectID
	couponCode := ""
	var discount float64
	if cart.Coupon != nil {
		applied, err := c.coupons.Validate(ctx, cart.Coupon.Code, cart.RestaurantID, itemTotal)
		if err != nil {
			return nil, err
		}
		couponID = &applied.CouponID
		couponCode = applied.Code
		discount = applied.DiscountAmount
	}

	bill := billing.Compute(itemTotal, discount)
	if bill != cart.Bill {
		// The server figure wins; a disagreement is a tamper signal,
		// not a checkout failure.
		log.Printf("[ORDER] [ERROR] bill mismatch for customer %s: client total %.2f, server total %.2f",
			customerID.Hex(), cart.Bill.Total, bill.Total)
	}

	order := models.Order{
		OrderNumber:   orderNumber,
		CustomerID:    customerID,
		RestaurantID:  cart.RestaurantID,
		AddressID:     addressID,
		Items:         orderItems,
		Bill:          bill,
		CouponID:      couponID,
		CouponCode:    couponCode,
		PaymentMethod: paymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.OrderStatusPending,
		Instructions:  instructions,
		CreatedAt:     time.Now(),
	}

	if err := c.store.InsertOrder(ctx, &order); err != nil {
		return nil, err
	}

	if err := c.store.AppendHistory(ctx, order.ID, models.OrderStatusPending); err != nil {
		return nil, err
	}

	if couponID != nil {
		if err := c.store.IncrementCouponUsage(ctx, *couponID); err != nil {
			return nil, err
		}
	}

	return &order, nil
}

// generateOrderNumber builds the user-facing order identifier. The
// second-resolution timestamp keeps numbers roughly sortable and makes
// collisions possible only within one second; the random suffix
// separates orders created in that second. The unique orderNumber
// index still has the final word.
func generateOrderNumber() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to the clock; the unique index still guards us.
		return fmt.Sprintf("YUM-%d-%06d", time.Now().Unix(), time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("YUM-%d-%06d", time.Now().Unix(), binary.BigEndian.Uint32(buf)%1000000)
}
