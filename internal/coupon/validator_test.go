package coupon

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperror"
	"backend/internal/models"
)

type fakeRepo struct {
	coupons map[string]models.Coupon
}

func (r *fakeRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c, ok := r.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeRepo) ListValid(ctx context.Context, restaurantID *primitive.ObjectID, now time.Time) ([]models.Coupon, error) {
	return nil, nil
}

func newTestValidator(coupons ...models.Coupon) *Validator {
	repo := &fakeRepo{coupons: map[string]models.Coupon{}}
	for _, c := range coupons {
		repo.coupons[c.Code] = c
	}
	v := NewValidator(repo)
	v.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func activeCoupon(code string) models.Coupon {
	return models.Coupon{
		ID:            primitive.NewObjectID(),
		Code:          code,
		DiscountType:  models.DiscountFlat,
		DiscountValue: 100,
		MinOrderValue: 300,
		IsActive:      true,
		ValidFrom:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTill:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateUnknownCodeIsNotFound(t *testing.T) {
	v := newTestValidator()
	_, err := v.Validate(context.Background(), "NOPE", primitive.NewObjectID(), 500)
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestValidateInactiveCoupon(t *testing.T) {
	c := activeCoupon("FLAT100")
	c.IsActive = false
	v := newTestValidator(c)

	_, err := v.Validate(context.Background(), "FLAT100", primitive.NewObjectID(), 500)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad-request error, got %v", err)
	}
}

func TestValidateWindow(t *testing.T) {
	early := activeCoupon("EARLY")
	early.ValidFrom = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	expired := activeCoupon("EXPIRED")
	expired.ValidTill = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	v := newTestValidator(early, expired)

	if _, err := v.Validate(context.Background(), "EARLY", primitive.NewObjectID(), 500); err == nil {
		t.Fatal("expected error for not-yet-active coupon")
	}
	if _, err := v.Validate(context.Background(), "EXPIRED", primitive.NewObjectID(), 500); err == nil {
		t.Fatal("expected error for expired coupon")
	}
}

func TestValidateMinOrderShortfallMessage(t *testing.T) {
	v := newTestValidator(activeCoupon("FLAT100"))

	_, err := v.Validate(context.Background(), "FLAT100", primitive.NewObjectID(), 250)
	if err == nil {
		t.Fatal("expected min-order error")
	}
	if !strings.Contains(err.Error(), "50") {
		t.Fatalf("expected shortfall amount in message, got %q", err.Error())
	}
}

func TestValidateRestaurantScope(t *testing.T) {
	scopedTo := primitive.NewObjectID()
	c := activeCoupon("LOCAL50")
	c.RestaurantID = &scopedTo
	v := newTestValidator(c)

	if _, err := v.Validate(context.Background(), "LOCAL50", primitive.NewObjectID(), 500); err == nil {
		t.Fatal("expected scope error for foreign restaurant")
	}
	if _, err := v.Validate(context.Background(), "LOCAL50", scopedTo, 500); err != nil {
		t.Fatalf("expected scoped coupon to pass at its restaurant, got %v", err)
	}
}

func TestValidateUsageLimit(t *testing.T) {
	c := activeCoupon("LIMITED")
	c.MaxUsage = 5
	c.CurrentUsage = 5
	v := newTestValidator(c)

	if _, err := v.Validate(context.Background(), "LIMITED", primitive.NewObjectID(), 500); err == nil {
		t.Fatal("expected usage-limit error")
	}
}

func TestValidateFreezesFlatDiscount(t *testing.T) {
	v := newTestValidator(activeCoupon("FLAT100"))

	applied, err := v.Validate(context.Background(), "FLAT100", primitive.NewObjectID(), 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied.DiscountAmount != 100 {
		t.Fatalf("expected discount 100, got %v", applied.DiscountAmount)
	}
	if applied.Code != "FLAT100" || applied.DiscountType != models.DiscountFlat {
		t.Fatalf("unexpected applied coupon: %+v", applied)
	}
}

func TestDiscountPercentageCappedAndFloored(t *testing.T) {
	c := models.Coupon{
		DiscountType:  models.DiscountPercentage,
		DiscountValue: 30,
		MaxDiscount:   120,
	}

	if got := Discount(&c, 1000); got != 120 {
		t.Fatalf("expected cap at 120, got %v", got)
	}
	if got := Discount(&c, 305); got != 91 {
		t.Fatalf("expected floored discount 91, got %v", got)
	}

	c.MaxDiscount = 0
	if got := Discount(&c, 1000); got != 300 {
		t.Fatalf("expected uncapped discount 300, got %v", got)
	}
}
