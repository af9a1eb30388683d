package orders

import (
	"context"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/apperror"
	"backend/internal/billing"
	"backend/internal/models"
	"backend/internal/payment"
)

type fakeCheckoutStore struct {
	restaurant   *models.Restaurant
	items        map[primitive.ObjectID]*models.MenuItem
	insertedOrds []models.Order
	historyRows  []string
	couponBumps  int
	paymentRefs  map[primitive.ObjectID]string
	failReserves map[primitive.ObjectID]int
	dupInserts   int
	inserts      int
	txns         int
}

// InTransaction mirrors the rollback semantics checkout relies on: an
// error from fn undoes every write made inside it.
func (s *fakeCheckoutStore) InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	s.txns++
	stocks := map[primitive.ObjectID]int{}
	for id, item := range s.items {
		stocks[id] = item.Stock
	}
	orderMark := len(s.insertedOrds)
	historyMark := len(s.historyRows)
	bumpMark := s.couponBumps

	if err := fn(ctx); err != nil {
		for id, stock := range stocks {
			s.items[id].Stock = stock
		}
		s.insertedOrds = s.insertedOrds[:orderMark]
		s.historyRows = s.historyRows[:historyMark]
		s.couponBumps = bumpMark
		return err
	}
	return nil
}

func (s *fakeCheckoutStore) FindRestaurant(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error) {
	if s.restaurant == nil || s.restaurant.ID != id {
		return nil, nil
	}
	clone := *s.restaurant
	return &clone, nil
}

func (s *fakeCheckoutStore) FindMenuItem(ctx context.Context, id primitive.ObjectID) (*models.MenuItem, error) {
	item, ok := s.items[id]
	if !ok || item.IsDeleted {
		return nil, nil
	}
	clone := *item
	return &clone, nil
}

func (s *fakeCheckoutStore) ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) (bool, error) {
	if s.failReserves[id] > 0 {
		s.failReserves[id]--
		return false, nil
	}
	item, ok := s.items[id]
	if !ok || item.Stock < quantity {
		return false, nil
	}
	item.Stock -= quantity
	return true, nil
}

func (s *fakeCheckoutStore) InsertOrder(ctx context.Context, order *models.Order) error {
	s.inserts++
	if s.inserts <= s.dupInserts {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	order.ID = primitive.NewObjectID()
	s.insertedOrds = append(s.insertedOrds, *order)
	return nil
}

func (s *fakeCheckoutStore) AppendHistory(ctx context.Context, orderID primitive.ObjectID, status string) error {
	s.historyRows = append(s.historyRows, status)
	return nil
}

func (s *fakeCheckoutStore) IncrementCouponUsage(ctx context.Context, couponID primitive.ObjectID) error {
	s.couponBumps++
	return nil
}

func (s *fakeCheckoutStore) SetPaymentRef(ctx context.Context, orderID primitive.ObjectID, paymentRef string) error {
	s.paymentRefs[orderID] = paymentRef
	return nil
}

type fakeCartSource struct {
	cart    models.Cart
	cleared int
}

func (s *fakeCartSource) GetCart(ctx context.Context, customerID primitive.ObjectID) (models.Cart, error) {
	return s.cart, nil
}

func (s *fakeCartSource) Clear(ctx context.Context, customerID primitive.ObjectID) error {
	s.cleared++
	return nil
}

type fakeAddressBook struct {
	owns bool
}

func (b *fakeAddressBook) BelongsToCustomer(ctx context.Context, customerID primitive.ObjectID, addressID string) (bool, error) {
	return b.owns, nil
}

type fakeCouponCheck struct {
	applied *models.AppliedCoupon
	err     error
}

func (f *fakeCouponCheck) Validate(ctx context.Context, code string, restaurantID primitive.ObjectID, cartTotal float64) (*models.AppliedCoupon, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.applied, nil
}

type fakePayments struct {
	calls int
}

func (p *fakePayments) CreateIntent(orderNumber string, amount float64) (payment.Intent, error) {
	p.calls++
	return payment.Intent{Reference: "pay_test", Status: "PENDING"}, nil
}

type checkoutFixture struct {
	store      *fakeCheckoutStore
	carts      *fakeCartSource
	book       *fakeAddressBook
	coupons    *fakeCouponCheck
	payments   *fakePayments
	scheduler  *fakeScheduler
	notifier   *fakeNotifier
	committer  *Committer
	customerID primitive.ObjectID
	itemID     primitive.ObjectID
}

func newCheckoutFixture(t *testing.T, stock, quantity int) *checkoutFixture {
	t.Helper()

	customerID := primitive.NewObjectID()
	restaurantID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()

	store := &fakeCheckoutStore{
		restaurant: &models.Restaurant{
			ID:       restaurantID,
			Name:     "Spice Route",
			Status:   models.RestaurantOpen,
			IsActive: true,
		},
		items: map[primitive.ObjectID]*models.MenuItem{
			itemID: {ID: itemID, RestaurantID: restaurantID, Name: "Paneer Tikka", Price: 200, Stock: stock},
		},
		paymentRefs:  map[primitive.ObjectID]string{},
		failReserves: map[primitive.ObjectID]int{},
	}

	cart := models.EmptyCart(customerID)
	cart.RestaurantID = restaurantID
	cart.Items = []models.CartLine{{
		LineID:      "line-1",
		MenuItemID:  itemID,
		Name:        "Paneer Tikka",
		Price:       200,
		Quantity:    quantity,
		IsAvailable: true,
	}}
	cart.Bill = billing.Compute(200*float64(quantity), 0)

	f := &checkoutFixture{
		store:      store,
		carts:      &fakeCartSource{cart: cart},
		book:       &fakeAddressBook{owns: true},
		coupons:    &fakeCouponCheck{},
		payments:   &fakePayments{},
		scheduler:  &fakeScheduler{},
		notifier:   &fakeNotifier{},
		customerID: customerID,
		itemID:     itemID,
	}
	engine := NewEngine(newFakeStore(), f.scheduler, f.notifier)
	f.committer = NewCommitter(store, f.carts, f.book, f.coupons, f.payments, engine, f.notifier)
	return f
}

func (f *checkoutFixture) checkout(t *testing.T, paymentMethod string) (*models.Order, error) {
	t.Helper()
	return f.committer.CreateOrder(context.Background(), f.customerID, "addr-1", paymentMethod, "")
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)

	_, err := f.checkout(t, "CHEQUE")
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.store.txns != 0 {
		t.Fatal("no transaction may start for an invalid payment method")
	}
}

func TestCreateOrderEmptyCartNotFound(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)
	f.carts.cart = models.EmptyCart(f.customerID)

	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCreateOrderForeignAddressForbidden(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)
	f.book.owns = false

	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if f.store.txns != 0 {
		t.Fatal("no transaction may start for a foreign address")
	}
}

func TestCreateOrderClosedRestaurantRejected(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)
	f.store.restaurant.Status = models.RestaurantClosed

	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
	if f.store.items[f.itemID].Stock != 5 {
		t.Fatal("stock must be untouched after a closed-restaurant reject")
	}
}

func TestCreateOrderInactiveRestaurantRejected(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)
	f.store.restaurant.IsActive = false

	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
}

func TestCreateOrderStockShortfallNamesItem(t *testing.T) {
	f := newCheckoutFixture(t, 1, 2)

	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Paneer Tikka") {
		t.Fatalf("error must name the offending item, got %q", err.Error())
	}
	if len(f.store.insertedOrds) != 0 {
		t.Fatal("no order may exist after a stock reject")
	}
	if f.store.items[f.itemID].Stock != 1 {
		t.Fatalf("stock must be rolled back, got %d", f.store.items[f.itemID].Stock)
	}
}

func TestCreateOrderStockRaceLoserRejected(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)
	// The read sees stock, but a concurrent checkout wins the
	// conditional decrement.
	f.store.failReserves[f.itemID] = 1

	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
	if len(f.store.insertedOrds) != 0 {
		t.Fatal("the losing checkout must not produce an order")
	}
	if f.store.items[f.itemID].Stock != 5 {
		t.Fatalf("stock must be rolled back, got %d", f.store.items[f.itemID].Stock)
	}
}

func TestCreateOrderOneUnitTwoCheckoutsOneWins(t *testing.T) {
	f := newCheckoutFixture(t, 1, 1)

	if _, err := f.checkout(t, models.PaymentMethodCOD); err != nil {
		t.Fatalf("first checkout must succeed, got %v", err)
	}
	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("second checkout must lose, got %v", err)
	}
	if len(f.store.insertedOrds) != 1 {
		t.Fatalf("exactly one order may exist, got %d", len(f.store.insertedOrds))
	}
	if f.store.items[f.itemID].Stock != 0 {
		t.Fatalf("stock must be zero, got %d", f.store.items[f.itemID].Stock)
	}
}

func TestCreateOrderCouponFailureAbortsWholesale(t *testing.T) {
	f := newCheckoutFixture(t, 5, 2)
	f.carts.cart.Coupon = &models.AppliedCoupon{Code: "SAVE50", DiscountAmount: 50}
	f.coupons.err = apperror.BadRequest("coupon usage limit reached")

	_, err := f.checkout(t, models.PaymentMethodCOD)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
	if len(f.store.insertedOrds) != 0 {
		t.Fatal("no order may exist after a coupon reject")
	}
	if f.store.items[f.itemID].Stock != 5 {
		t.Fatalf("reserved stock must be released, got %d", f.store.items[f.itemID].Stock)
	}
	if f.store.couponBumps != 0 {
		t.Fatal("coupon usage must not be counted")
	}
}

func TestCreateOrderServerBillWins(t *testing.T) {
	f := newCheckoutFixture(t, 5, 2)
	f.carts.cart.Bill = models.Bill{Total: 1}

	order, err := f.checkout(t, models.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := billing.Compute(400, 0)
	if order.Bill != want {
		t.Fatalf("expected server-computed bill %+v, got %+v", want, order.Bill)
	}
}

func TestCreateOrderNumberCollisionRetriesTransaction(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)
	f.store.dupInserts = 1

	order, err := f.checkout(t, models.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("collision must be retried, got %v", err)
	}
	if f.store.txns != 2 {
		t.Fatalf("expected a second transaction after the collision, got %d", f.store.txns)
	}
	if len(f.store.insertedOrds) != 1 {
		t.Fatalf("exactly one order may exist, got %d", len(f.store.insertedOrds))
	}
	if f.store.items[f.itemID].Stock != 4 {
		t.Fatalf("stock must be decremented exactly once, got %d", f.store.items[f.itemID].Stock)
	}
	if !strings.HasPrefix(order.OrderNumber, "YUM-") {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
}

func TestCreateOrderCODSchedulesProgression(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)

	order, err := f.checkout(t, models.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if len(f.scheduler.scheduled) != len(ProgressionSchedule) {
		t.Fatalf("expected the whole chain scheduled, got %d tasks", len(f.scheduler.scheduled))
	}
	if f.carts.cleared != 1 {
		t.Fatalf("cart must be cleared once, got %d", f.carts.cleared)
	}
	if len(f.notifier.events) == 0 || f.notifier.events[0] != "order:created" {
		t.Fatalf("expected order:created event, got %v", f.notifier.events)
	}
	if len(f.store.historyRows) != 1 || f.store.historyRows[0] != models.OrderStatusPending {
		t.Fatalf("expected one PENDING history row, got %v", f.store.historyRows)
	}
}

func TestCreateOrderOnlineCreatesIntent(t *testing.T) {
	f := newCheckoutFixture(t, 5, 1)

	order, err := f.checkout(t, models.PaymentMethodOnline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.payments.calls != 1 {
		t.Fatalf("expected one payment intent, got %d", f.payments.calls)
	}
	if order.PaymentRef != "pay_test" {
		t.Fatalf("expected payment ref on the order, got %q", order.PaymentRef)
	}
	if f.store.paymentRefs[order.ID] != "pay_test" {
		t.Fatal("payment ref must be persisted")
	}
	if len(f.scheduler.scheduled) != 0 {
		t.Fatal("online orders must not progress before payment verification")
	}
}

func TestCreateOrderCountsCouponUsage(t *testing.T) {
	f := newCheckoutFixture(t, 5, 2)
	couponID := primitive.NewObjectID()
	f.carts.cart.Coupon = &models.AppliedCoupon{CouponID: couponID, Code: "SAVE50", DiscountAmount: 50}
	f.coupons.applied = &models.AppliedCoupon{CouponID: couponID, Code: "SAVE50", DiscountType: "FLAT", DiscountAmount: 50}

	order, err := f.checkout(t, models.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.couponBumps != 1 {
		t.Fatalf("expected one usage bump, got %d", f.store.couponBumps)
	}
	if order.CouponCode != "SAVE50" {
		t.Fatalf("expected coupon frozen on the order, got %q", order.CouponCode)
	}
	want := billing.Compute(400, 50)
	if order.Bill != want {
		t.Fatalf("expected discounted bill %+v, got %+v", want, order.Bill)
	}
}
