package billing

import "backend/internal/models"

// Fixed fee schedule. GST on food is 5%; delivery and packaging are flat
// per-order fees.
const (
	GSTRate      = 0.05
	DeliveryFee  = 40.0
	PackagingFee = 10.0
)

// Compute derives the bill from the item total and an already-computed
// discount. It is a pure function; the bill is never persisted on its
// own. The total is clamped at zero so an oversized discount cannot
// drive it negative.
func Compute(itemTotal, discount float64) models.Bill {
	bill := models.Bill{
		ItemTotal:    itemTotal,
		GST:          itemTotal * GSTRate,
		DeliveryFee:  DeliveryFee,
		PackagingFee: PackagingFee,
		Discount:     discount,
	}
	bill.Total = bill.ItemTotal + bill.GST + bill.DeliveryFee + bill.PackagingFee - bill.Discount
	if bill.Total < 0 {
		bill.Total = 0
	}
	return bill
}

// ItemTotal sums price*quantity over the available lines only.
// Unavailable lines stay in the cart for display but never count
// toward the bill.
func ItemTotal(lines []models.CartLine) float64 {
	var total float64
	for _, line := range lines {
		if !line.IsAvailable {
			continue
		}
		total += line.Price * float64(line.Quantity)
	}
	return total
}
