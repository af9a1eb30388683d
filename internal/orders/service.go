package orders

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperror"
	"backend/internal/models"
)

// QueryStore widens Store with the read and payment operations the
// order service needs.
type QueryStore interface {
	Store
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID, status string, page, limit int64) ([]models.Order, error)
	ListHistory(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderStatusHistory, error)
	ConfirmPayment(ctx context.Context, orderID primitive.ObjectID, paymentRef string) error
}

// CartBuilder rebuilds a cart from a past order's items.
type CartBuilder interface {
	BuildFromOrder(ctx context.Context, customerID, restaurantID primitive.ObjectID, items []models.OrderItem) (models.Cart, []string, error)
}

// SignatureVerifier checks gateway payment callback signatures.
type SignatureVerifier interface {
	VerifySignature(paymentRef, orderNumber, signature string) bool
}

// Service covers the order operations outside checkout: history,
// detail, reorder and online payment verification.
type Service struct {
	store    QueryStore
	engine   *Engine
	carts    CartBuilder
	payments SignatureVerifier
	notifier Notifier
}

func NewService(store QueryStore, engine *Engine, carts CartBuilder, payments SignatureVerifier, notifier Notifier) *Service {
	return &Service{store: store, engine: engine, carts: carts, payments: payments, notifier: notifier}
}

// List returns the customer's order history, newest first.
func (s *Service) List(ctx context.Context, customerID primitive.ObjectID, status string, page, limit int64) ([]models.Order, error) {
	return s.store.ListByCustomer(ctx, customerID, status, page, limit)
}

// Detail returns one order with its full status history. Orders are
// only visible to their customer.
func (s *Service) Detail(ctx context.Context, customerID, orderID primitive.ObjectID) (*models.Order, []models.OrderStatusHistory, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, apperror.NotFound("order not found")
	}
	if order.CustomerID != customerID {
		return nil, nil, apperror.Forbidden("order does not belong to this customer")
	}

	history, err := s.store.ListHistory(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, history, nil
}

// Reorder rebuilds the customer's cart from a past order. Items no
// longer orderable come back in skipped, never silently dropped.
func (s *Service) Reorder(ctx context.Context, customerID, orderID primitive.ObjectID) (models.Cart, []string, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return models.Cart{}, nil, err
	}
	if order == nil {
		return models.Cart{}, nil, apperror.NotFound("order not found")
	}
	if order.CustomerID != customerID {
		return models.Cart{}, nil, apperror.Forbidden("order does not belong to this customer")
	}

	return s.carts.BuildFromOrder(ctx, customerID, order.RestaurantID, order.Items)
}

// VerifyPayment handles the gateway callback for an online order:
// signature check, payment marked collected, order confirmed, and the
// remaining status chain scheduled. Verifying an already-paid order is
// a no-op success so the gateway may retry its callback.
func (s *Service) VerifyPayment(ctx context.Context, customerID, orderID primitive.ObjectID, paymentRef, signature string) (*models.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NotFound("order not found")
	}
	if order.CustomerID != customerID {
		return nil, apperror.Forbidden("order does not belong to this customer")
	}
	if order.PaymentMethod != models.PaymentMethodOnline {
		return nil, apperror.BadRequest("order does not use online payment")
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return order, nil
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, apperror.BadRequest("order is cancelled")
	}

	if !s.payments.VerifySignature(paymentRef, order.OrderNumber, signature) {
		log.Printf("[PAYMENT] [ERROR] signature mismatch for order %s", order.OrderNumber)
		return nil, apperror.BadRequest("invalid payment signature")
	}

	if err := s.store.ConfirmPayment(ctx, orderID, paymentRef); err != nil {
		return nil, err
	}
	order.PaymentStatus = models.PaymentStatusPaid
	order.PaymentRef = paymentRef

	won, err := s.store.UpdateStatus(ctx, orderID, models.OrderStatusPending, models.OrderStatusConfirmed)
	if err != nil {
		return nil, err
	}
	if won {
		order.Status = models.OrderStatusConfirmed
	}

	s.engine.ScheduleProgression(ctx, orderID)
	s.notifier.Notify(ctx, "order:confirmed", map[string]string{"orderId": orderID.Hex()})
	return order, nil
}
