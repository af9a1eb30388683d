package coupon

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperror"
	"backend/internal/models"
)

// Repository is the read/list surface the validator needs. FindByCode
// returns (nil, nil) when no coupon carries the code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListValid(ctx context.Context, restaurantID *primitive.ObjectID, now time.Time) ([]models.Coupon, error)
}

// Validator runs the coupon eligibility checks and computes the frozen
// discount. The checks run in a fixed order and short-circuit on the
// first failure; every failure carries a distinct user-facing message.
type Validator struct {
	repo Repository
	now  func() time.Time
}

func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate checks code against the cart's restaurant and total and
// returns the discount frozen into an AppliedCoupon. Check order:
// existence, active flag, validity window, minimum order value,
// restaurant scope, usage limit.
func (v *Validator) Validate(ctx context.Context, code string, restaurantID primitive.ObjectID, cartTotal float64) (*models.AppliedCoupon, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("coupon %q does not exist", code)
	}

	if !c.IsActive {
		return nil, apperror.BadRequest("coupon is inactive")
	}

	now := v.now()
	if now.Before(c.ValidFrom) {
		return nil, apperror.BadRequest("coupon is not yet active")
	}
	if now.After(c.ValidTill) {
		return nil, apperror.BadRequest("coupon has expired")
	}

	if cartTotal < c.MinOrderValue {
		return nil, apperror.BadRequest("add %.0f more to use this coupon", c.MinOrderValue-cartTotal)
	}

	if c.RestaurantID != nil && *c.RestaurantID != restaurantID {
		return nil, apperror.BadRequest("coupon is not valid for this restaurant")
	}

	if c.MaxUsage > 0 && c.CurrentUsage >= c.MaxUsage {
		return nil, apperror.BadRequest("coupon usage limit reached")
	}

	return &models.AppliedCoupon{
		CouponID:       c.ID,
		Code:           c.Code,
		DiscountType:   c.DiscountType,
		DiscountAmount: Discount(c, cartTotal),
	}, nil
}

// ListValid returns the active, unexpired coupons visible to a
// restaurant: platform-wide codes plus ones scoped to it.
func (v *Validator) ListValid(ctx context.Context, restaurantID *primitive.ObjectID) ([]models.Coupon, error) {
	return v.repo.ListValid(ctx, restaurantID, v.now())
}

// Discount computes the discount amount for a coupon against a cart
// total: flat coupons take their value, percentage coupons take the
// proportional cut capped at MaxDiscount when set. The result is
// floored to a whole currency unit.
func Discount(c *models.Coupon, cartTotal float64) float64 {
	var amount float64
	switch c.DiscountType {
	case models.DiscountFlat:
		amount = c.DiscountValue
	case models.DiscountPercentage:
		amount = cartTotal * c.DiscountValue / 100
		if c.MaxDiscount > 0 && amount > c.MaxDiscount {
			amount = c.MaxDiscount
		}
	}
	return math.Floor(amount)
}
