package billing

import (
	"testing"

	"backend/internal/models"
)

func TestComputeWithoutCoupon(t *testing.T) {
	bill := Compute(400, 0)

	if bill.ItemTotal != 400 {
		t.Fatalf("expected itemTotal 400, got %v", bill.ItemTotal)
	}
	if bill.GST != 20 {
		t.Fatalf("expected gst 20, got %v", bill.GST)
	}
	if bill.DeliveryFee != 40 || bill.PackagingFee != 10 {
		t.Fatalf("unexpected fees: delivery %v packaging %v", bill.DeliveryFee, bill.PackagingFee)
	}
	if bill.Total != 470 {
		t.Fatalf("expected total 470, got %v", bill.Total)
	}
}

func TestComputeWithFlatDiscount(t *testing.T) {
	bill := Compute(400, 100)
	if bill.Discount != 100 {
		t.Fatalf("expected discount 100, got %v", bill.Discount)
	}
	if bill.Total != 370 {
		t.Fatalf("expected total 370, got %v", bill.Total)
	}
}

func TestComputeClampsTotalAtZero(t *testing.T) {
	bill := Compute(100, 1000)
	if bill.Total != 0 {
		t.Fatalf("expected total clamped to 0, got %v", bill.Total)
	}
}

func TestItemTotalSkipsUnavailableLines(t *testing.T) {
	lines := []models.CartLine{
		{Price: 200, Quantity: 2, IsAvailable: true},
		{Price: 999, Quantity: 1, IsAvailable: false},
	}
	if got := ItemTotal(lines); got != 400 {
		t.Fatalf("expected item total 400, got %v", got)
	}
}
