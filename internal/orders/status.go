package orders

import (
	"time"

	"backend/internal/models"
)

// statusRank orders the progression chain. A transition is only applied
// when the target ranks strictly ahead of the current status, which is
// what makes late or duplicate scheduled transitions harmless.
var statusRank = map[string]int{
	models.OrderStatusPending:        0,
	models.OrderStatusConfirmed:      1,
	models.OrderStatusPreparing:      2,
	models.OrderStatusReady:          3,
	models.OrderStatusOutForDelivery: 4,
	models.OrderStatusDelivered:      5,
}

// IsTerminal reports whether no further transition may leave status.
func IsTerminal(status string) bool {
	return status == models.OrderStatusDelivered || status == models.OrderStatusCancelled
}

// CanAdvance reports whether a scheduled transition from current to
// target should be applied.
func CanAdvance(current, target string) bool {
	if IsTerminal(current) {
		return false
	}
	currentRank, ok := statusRank[current]
	if !ok {
		return false
	}
	targetRank, ok := statusRank[target]
	if !ok {
		return false
	}
	return targetRank > currentRank
}

// CanCancel reports whether the customer may still cancel. Once the
// restaurant starts preparing, cancellation is refused.
func CanCancel(status string) bool {
	return status == models.OrderStatusPending || status == models.OrderStatusConfirmed
}

// ProgressionStep is one delayed transition of the simulated kitchen
// flow.
type ProgressionStep struct {
	Status string
	After  time.Duration
}

// ProgressionSchedule is the full chain scheduled at creation for
// orders whose payment needs no external confirmation.
var ProgressionSchedule = []ProgressionStep{
	{Status: models.OrderStatusConfirmed, After: 0},
	{Status: models.OrderStatusPreparing, After: 30 * time.Second},
	{Status: models.OrderStatusReady, After: 90 * time.Second},
	{Status: models.OrderStatusOutForDelivery, After: 150 * time.Second},
	{Status: models.OrderStatusDelivered, After: 240 * time.Second},
}
