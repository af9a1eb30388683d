package cart

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperror"
	"backend/internal/billing"
	"backend/internal/models"
)

// Cache is the expiring key/value store carts live in.
type Cache interface {
	Get(ctx context.Context, customerID primitive.ObjectID) (*models.Cart, error)
	Set(ctx context.Context, cart *models.Cart) error
	Del(ctx context.Context, customerID primitive.ObjectID) error
}

// Catalog is the read-only restaurant/menu-item truth.
type Catalog interface {
	ItemsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.CatalogItem, error)
	Restaurant(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error)
}

// CouponValidator re-checks a code against the current cart state and
// returns the frozen discount.
type CouponValidator interface {
	Validate(ctx context.Context, code string, restaurantID primitive.ObjectID, cartTotal float64) (*models.AppliedCoupon, error)
}

// Service is the cart store and reconciler. Carts are ephemeral cache
// documents; every read cross-checks them against the catalog and heals
// what drifted. Concurrent edits to one customer's cart are a
// last-write-wins race, accepted under single-session editing.
type Service struct {
	cache   Cache
	catalog Catalog
	coupons CouponValidator
	now     func() time.Time
}

func NewService(cache Cache, catalog Catalog, coupons CouponValidator) *Service {
	return &Service{cache: cache, catalog: catalog, coupons: coupons, now: time.Now}
}

// GetCart returns the customer's reconciled cart. An absent cart is the
// canonical empty cart with a zeroed bill, never an error. The cache
// entry is rewritten only when reconciliation actually changed
// something, so pure reads do not reset the TTL.
func (s *Service) GetCart(ctx context.Context, customerID primitive.ObjectID) (models.Cart, error) {
	cached, err := s.cache.Get(ctx, customerID)
	if err != nil {
		return models.Cart{}, err
	}
	if cached == nil {
		return models.EmptyCart(customerID), nil
	}

	wasModified, err := s.reconcile(ctx, cached)
	if err != nil {
		return models.Cart{}, err
	}

	if wasModified {
		cached.UpdatedAt = s.now()
		if err := s.cache.Set(ctx, cached); err != nil {
			return models.Cart{}, err
		}
	}
	return *cached, nil
}

// reconcile heals the cart in place against the catalog and reports
// whether anything changed: availability flags refreshed, drifted
// prices overwritten silently, restaurant status attached, coupon
// re-frozen when the item total moved, bill recomputed unconditionally.
func (s *Service) reconcile(ctx context.Context, cart *models.Cart) (bool, error) {
	wasModified := false

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, line := range cart.Items {
		ids = append(ids, line.MenuItemID)
	}

	items, err := s.catalog.ItemsByIDs(ctx, ids)
	if err != nil {
		return false, err
	}
	byID := make(map[primitive.ObjectID]models.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	for i := range cart.Items {
		line := &cart.Items[i]
		current, ok := byID[line.MenuItemID]
		if !ok || !current.InStock {
			// Missing or out of stock: excluded from totals but kept in
			// the cart so the client can show what happened.
			if line.IsAvailable {
				line.IsAvailable = false
				wasModified = true
			}
			continue
		}
		if !line.IsAvailable {
			line.IsAvailable = true
			wasModified = true
		}
		if line.Price != current.Price {
			line.Price = current.Price
			wasModified = true
		}
	}

	restaurantStatus := ""
	restaurant, err := s.catalog.Restaurant(ctx, cart.RestaurantID)
	if err != nil {
		return false, err
	}
	if restaurant == nil || !restaurant.IsActive {
		restaurantStatus = models.RestaurantClosed
	} else if restaurant.Status != models.RestaurantOpen {
		restaurantStatus = restaurant.Status
	}
	if cart.RestaurantStatus != restaurantStatus {
		cart.RestaurantStatus = restaurantStatus
		wasModified = true
	}

	billModified, err := s.refreshBill(ctx, cart)
	if err != nil {
		return false, err
	}
	return wasModified || billModified, nil
}

// refreshBill recomputes the item total and the bill. The frozen coupon
// discount is only re-derived when the item total moved; a coupon that
// is no longer eligible is dropped.
func (s *Service) refreshBill(ctx context.Context, cart *models.Cart) (bool, error) {
	wasModified := false
	itemTotal := billing.ItemTotal(cart.Items)

	if cart.Coupon != nil && itemTotal != cart.Bill.ItemTotal {
		applied, err := s.coupons.Validate(ctx, cart.Coupon.Code, cart.RestaurantID, itemTotal)
		if err != nil {
			if _, ok := apperror.As(err); !ok {
				return false, err
			}
			log.Printf("[CART] [INFO] dropping coupon %s: %v", cart.Coupon.Code, err)
			cart.Coupon = nil
			wasModified = true
		} else if *applied != *cart.Coupon {
			cart.Coupon = applied
			wasModified = true
		}
	}

	var discount float64
	if cart.Coupon != nil {
		discount = cart.Coupon.DiscountAmount
	}
	bill := billing.Compute(itemTotal, discount)
	if cart.Bill != bill {
		cart.Bill = bill
		wasModified = true
	}
	return wasModified, nil
}

// AddItem puts qty units of a menu item into the cart. Adding from a
// second restaurant is a conflict, never an implicit replacement; the
// client has to clear first. An existing line for the same item is
// merged by summing quantities, capped at the line maximum.
func (s *Service) AddItem(ctx context.Context, customerID, restaurantID, itemID primitive.ObjectID, qty int) (models.Cart, error) {
	if qty < 1 || qty > models.MaxLineQuantity {
		return models.Cart{}, apperror.Validation("quantity", "quantity must be between 1 and %d", models.MaxLineQuantity)
	}

	items, err := s.catalog.ItemsByIDs(ctx, []primitive.ObjectID{itemID})
	if err != nil {
		return models.Cart{}, err
	}
	if len(items) == 0 {
		return models.Cart{}, apperror.NotFound("menu item not found")
	}
	item := items[0]
	if item.RestaurantID != restaurantID {
		return models.Cart{}, apperror.Validation("itemId", "item does not belong to this restaurant")
	}
	if !item.InStock {
		return models.Cart{}, apperror.BadRequest("%s is currently out of stock", item.Name)
	}

	cart, err := s.cache.Get(ctx, customerID)
	if err != nil {
		return models.Cart{}, err
	}
	if cart != nil && !cart.IsEmpty() && cart.RestaurantID != restaurantID {
		return models.Cart{}, apperror.Conflict("cart has items from another restaurant, clear it first")
	}
	if cart == nil || cart.IsEmpty() {
		fresh := models.EmptyCart(customerID)
		cart = &fresh
		cart.RestaurantID = restaurantID
	}

	if line := findLineByItem(cart, itemID); line != nil {
		line.Quantity += qty
		if line.Quantity > models.MaxLineQuantity {
			line.Quantity = models.MaxLineQuantity
		}
		line.IsAvailable = true
		line.Price = item.Price
	} else {
		cart.Items = append(cart.Items, models.CartLine{
			LineID:      uuid.New().String(),
			MenuItemID:  item.ID,
			Name:        item.Name,
			Price:       item.Price,
			Quantity:    qty,
			IsAvailable: true,
		})
	}

	return s.save(ctx, cart)
}

// UpdateItem sets a line's quantity. Zero removes the line; removing
// the last line deletes the cached cart outright rather than keeping an
// empty shell. Out-of-range quantities are clamped.
func (s *Service) UpdateItem(ctx context.Context, customerID primitive.ObjectID, lineID string, qty int) (models.Cart, error) {
	if qty < 0 {
		return models.Cart{}, apperror.Validation("quantity", "quantity cannot be negative")
	}

	cart, err := s.cache.Get(ctx, customerID)
	if err != nil {
		return models.Cart{}, err
	}
	if cart == nil {
		return models.Cart{}, apperror.NotFound("cart is empty")
	}
	line := cart.FindLine(lineID)
	if line == nil {
		return models.Cart{}, apperror.NotFound("cart item not found")
	}

	if qty == 0 {
		return s.removeLine(ctx, cart, lineID)
	}

	if qty > models.MaxLineQuantity {
		qty = models.MaxLineQuantity
	}
	line.Quantity = qty

	return s.save(ctx, cart)
}

// RemoveItem drops one line from the cart, with the same empty-cart
// cleanup rule as a zero-quantity update.
func (s *Service) RemoveItem(ctx context.Context, customerID primitive.ObjectID, lineID string) (models.Cart, error) {
	cart, err := s.cache.Get(ctx, customerID)
	if err != nil {
		return models.Cart{}, err
	}
	if cart == nil {
		return models.Cart{}, apperror.NotFound("cart is empty")
	}
	if cart.FindLine(lineID) == nil {
		return models.Cart{}, apperror.NotFound("cart item not found")
	}
	return s.removeLine(ctx, cart, lineID)
}

func (s *Service) removeLine(ctx context.Context, cart *models.Cart, lineID string) (models.Cart, error) {
	kept := cart.Items[:0]
	for _, line := range cart.Items {
		if line.LineID != lineID {
			kept = append(kept, line)
		}
	}
	cart.Items = kept

	if cart.IsEmpty() {
		if err := s.cache.Del(ctx, cart.CustomerID); err != nil {
			return models.Cart{}, err
		}
		return models.EmptyCart(cart.CustomerID), nil
	}
	return s.save(ctx, cart)
}

// Clear deletes the cart unconditionally. Clearing an absent cart is
// fine.
func (s *Service) Clear(ctx context.Context, customerID primitive.ObjectID) error {
	return s.cache.Del(ctx, customerID)
}

// ApplyCoupon validates the code against the current cart and freezes
// the discount into it. Re-applying the same code recomputes the same
// discount, it never stacks.
func (s *Service) ApplyCoupon(ctx context.Context, customerID primitive.ObjectID, code string) (models.Cart, error) {
	cart, err := s.cache.Get(ctx, customerID)
	if err != nil {
		return models.Cart{}, err
	}
	if cart == nil || cart.IsEmpty() {
		return models.Cart{}, apperror.NotFound("cart is empty")
	}

	itemTotal := billing.ItemTotal(cart.Items)
	applied, err := s.coupons.Validate(ctx, code, cart.RestaurantID, itemTotal)
	if err != nil {
		return models.Cart{}, err
	}

	cart.Coupon = applied
	cart.Bill = billing.Compute(itemTotal, applied.DiscountAmount)
	cart.UpdatedAt = s.now()
	if err := s.cache.Set(ctx, cart); err != nil {
		return models.Cart{}, err
	}
	return *cart, nil
}

// RemoveCoupon detaches the coupon and restores the undiscounted bill.
func (s *Service) RemoveCoupon(ctx context.Context, customerID primitive.ObjectID) (models.Cart, error) {
	cart, err := s.cache.Get(ctx, customerID)
	if err != nil {
		return models.Cart{}, err
	}
	if cart == nil {
		return models.Cart{}, apperror.NotFound("cart is empty")
	}

	cart.Coupon = nil
	cart.Bill = billing.Compute(billing.ItemTotal(cart.Items), 0)
	cart.UpdatedAt = s.now()
	if err := s.cache.Set(ctx, cart); err != nil {
		return models.Cart{}, err
	}
	return *cart, nil
}

// BuildFromOrder replaces the customer's cart with the still-orderable
// items of a past order. Items that vanished or went out of stock come
// back in skipped, never silently dropped.
func (s *Service) BuildFromOrder(ctx context.Context, customerID, restaurantID primitive.ObjectID, items []models.OrderItem) (models.Cart, []string, error) {
	restaurant, err := s.catalog.Restaurant(ctx, restaurantID)
	if err != nil {
		return models.Cart{}, nil, err
	}
	if restaurant == nil || !restaurant.IsActive {
		return models.Cart{}, nil, apperror.BadRequest("restaurant is no longer available")
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MenuItemID)
	}
	current, err := s.catalog.ItemsByIDs(ctx, ids)
	if err != nil {
		return models.Cart{}, nil, err
	}
	byID := make(map[primitive.ObjectID]models.CatalogItem, len(current))
	for _, item := range current {
		byID[item.ID] = item
	}

	cart := models.EmptyCart(customerID)
	cart.RestaurantID = restaurantID
	skipped := []string{}
	for _, item := range items {
		fresh, ok := byID[item.MenuItemID]
		if !ok || !fresh.InStock {
			skipped = append(skipped, item.Name)
			continue
		}
		cart.Items = append(cart.Items, models.CartLine{
			LineID:      uuid.New().String(),
			MenuItemID:  fresh.ID,
			Name:        fresh.Name,
			Price:       fresh.Price,
			Quantity:    item.Quantity,
			IsAvailable: true,
		})
	}
	if cart.IsEmpty() {
		return models.Cart{}, skipped, apperror.BadRequest("none of the items are available anymore")
	}

	saved, err := s.save(ctx, &cart)
	if err != nil {
		return models.Cart{}, nil, err
	}
	return saved, skipped, nil
}

// save recomputes the bill, stamps the cart and rewrites the cache
// entry. Every mutation resets the TTL.
func (s *Service) save(ctx context.Context, cart *models.Cart) (models.Cart, error) {
	if _, err := s.refreshBill(ctx, cart); err != nil {
		return models.Cart{}, err
	}
	cart.UpdatedAt = s.now()
	if err := s.cache.Set(ctx, cart); err != nil {
		return models.Cart{}, err
	}
	return *cart, nil
}

func findLineByItem(cart *models.Cart, itemID primitive.ObjectID) *models.CartLine {
	for i := range cart.Items {
		if cart.Items[i].MenuItemID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}
