package orders

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperror"
	"backend/internal/models"
)

type fakeQueryStore struct {
	*fakeStore
	confirmed map[primitive.ObjectID]string
}

func newFakeQueryStore(orders ...*models.Order) *fakeQueryStore {
	return &fakeQueryStore{
		fakeStore: newFakeStore(orders...),
		confirmed: map[primitive.ObjectID]string{},
	}
}

func (s *fakeQueryStore) ListByCustomer(ctx context.Context, customerID primitive.ObjectID, status string, page, limit int64) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeQueryStore) ListHistory(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderStatusHistory, error) {
	return nil, nil
}

func (s *fakeQueryStore) ConfirmPayment(ctx context.Context, orderID primitive.ObjectID, paymentRef string) error {
	s.confirmed[orderID] = paymentRef
	if o, ok := s.orders[orderID]; ok {
		o.PaymentStatus = models.PaymentStatusPaid
		o.PaymentRef = paymentRef
	}
	return nil
}

type fakeCartBuilder struct {
	skipped []string
}

func (b *fakeCartBuilder) BuildFromOrder(ctx context.Context, customerID, restaurantID primitive.ObjectID, items []models.OrderItem) (models.Cart, []string, error) {
	cart := models.EmptyCart(customerID)
	cart.RestaurantID = restaurantID
	return cart, b.skipped, nil
}

type fakeVerifier struct {
	ok bool
}

func (v *fakeVerifier) VerifySignature(paymentRef, orderNumber, signature string) bool {
	return v.ok
}

func newTestService(store *fakeQueryStore, verifier *fakeVerifier, notifier *fakeNotifier, scheduler *fakeScheduler) *Service {
	engine := NewEngine(store, scheduler, notifier)
	return NewService(store, engine, &fakeCartBuilder{}, verifier, notifier)
}

func TestDetailForeignOrderForbidden(t *testing.T) {
	order := testOrder(models.OrderStatusPending)
	svc := newTestService(newFakeQueryStore(order), &fakeVerifier{}, &fakeNotifier{}, &fakeScheduler{})

	_, _, err := svc.Detail(context.Background(), primitive.NewObjectID(), order.ID)
	if !apperror.IsKind(err, apperror.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestDetailUnknownOrderNotFound(t *testing.T) {
	svc := newTestService(newFakeQueryStore(), &fakeVerifier{}, &fakeNotifier{}, &fakeScheduler{})

	_, _, err := svc.Detail(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestReorderChecksOwnership(t *testing.T) {
	order := testOrder(models.OrderStatusDelivered)
	order.RestaurantID = primitive.NewObjectID()
	svc := newTestService(newFakeQueryStore(order), &fakeVerifier{}, &fakeNotifier{}, &fakeScheduler{})

	_, _, err := svc.Reorder(context.Background(), primitive.NewObjectID(), order.ID)
	if !apperror.IsKind(err, apperror.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	cart, _, err := svc.Reorder(context.Background(), order.CustomerID, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.RestaurantID != order.RestaurantID {
		t.Fatal("expected cart bound to the order's restaurant")
	}
}

func TestVerifyPaymentConfirmsAndSchedules(t *testing.T) {
	order := testOrder(models.OrderStatusPending)
	order.PaymentMethod = models.PaymentMethodOnline
	order.OrderNumber = "YUM-000042"
	store := newFakeQueryStore(order)
	scheduler := &fakeScheduler{}
	notifier := &fakeNotifier{}
	svc := newTestService(store, &fakeVerifier{ok: true}, notifier, scheduler)

	verified, err := svc.VerifyPayment(context.Background(), order.CustomerID, order.ID, "pay_abc", "sig")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verified.PaymentStatus != models.PaymentStatusPaid || verified.PaymentRef != "pay_abc" {
		t.Fatalf("expected paid order, got %+v", verified)
	}
	if verified.Status != models.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", verified.Status)
	}
	if len(scheduler.scheduled) != len(ProgressionSchedule) {
		t.Fatalf("expected progression scheduled, got %d tasks", len(scheduler.scheduled))
	}
}

func TestVerifyPaymentIdempotentWhenAlreadyPaid(t *testing.T) {
	order := testOrder(models.OrderStatusConfirmed)
	order.PaymentMethod = models.PaymentMethodOnline
	order.PaymentStatus = models.PaymentStatusPaid
	order.PaymentRef = "pay_abc"
	store := newFakeQueryStore(order)
	scheduler := &fakeScheduler{}
	svc := newTestService(store, &fakeVerifier{ok: true}, &fakeNotifier{}, scheduler)

	verified, err := svc.VerifyPayment(context.Background(), order.CustomerID, order.ID, "pay_abc", "sig")
	if err != nil {
		t.Fatalf("retried callback must succeed, got %v", err)
	}
	if verified.PaymentRef != "pay_abc" {
		t.Fatalf("unexpected payment ref %q", verified.PaymentRef)
	}
	if len(scheduler.scheduled) != 0 {
		t.Fatal("already-paid verify must not reschedule the chain")
	}
	if len(store.confirmed) != 0 {
		t.Fatal("already-paid verify must not touch the store")
	}
}

func TestVerifyPaymentBadSignature(t *testing.T) {
	order := testOrder(models.OrderStatusPending)
	order.PaymentMethod = models.PaymentMethodOnline
	store := newFakeQueryStore(order)
	svc := newTestService(store, &fakeVerifier{ok: false}, &fakeNotifier{}, &fakeScheduler{})

	_, err := svc.VerifyPayment(context.Background(), order.CustomerID, order.ID, "pay_abc", "forged")
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
	if store.orders[order.ID].PaymentStatus != models.PaymentStatusPending {
		t.Fatal("payment must stay pending after a bad signature")
	}
}

func TestVerifyPaymentCancelledOrder(t *testing.T) {
	order := testOrder(models.OrderStatusCancelled)
	order.PaymentMethod = models.PaymentMethodOnline
	svc := newTestService(newFakeQueryStore(order), &fakeVerifier{ok: true}, &fakeNotifier{}, &fakeScheduler{})

	_, err := svc.VerifyPayment(context.Background(), order.CustomerID, order.ID, "pay_abc", "sig")
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
}

func TestVerifyPaymentRejectsCODOrder(t *testing.T) {
	order := testOrder(models.OrderStatusPending)
	svc := newTestService(newFakeQueryStore(order), &fakeVerifier{ok: true}, &fakeNotifier{}, &fakeScheduler{})

	_, err := svc.VerifyPayment(context.Background(), order.CustomerID, order.ID, "pay_abc", "sig")
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
}
