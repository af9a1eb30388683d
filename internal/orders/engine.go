package orders

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperror"
	"backend/internal/models"
)

// TaskOrderStatus is the queue task name for delayed status
// transitions.
const TaskOrderStatus = "order:status"

// StatusTask is the payload of a scheduled transition.
type StatusTask struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Store is the persistence surface the status engine needs. FindByID
// returns (nil, nil) for a missing order. UpdateStatus applies the
// transition only while the order still has status from, appending the
// history row with it; it reports whether the update won.
type Store interface {
	FindByID(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID primitive.ObjectID, from, to string) (bool, error)
	MarkRefunded(ctx context.Context, orderID primitive.ObjectID) error
}

// Scheduler enqueues delayed tasks.
type Scheduler interface {
	Schedule(ctx context.Context, name string, payload interface{}, delay time.Duration) error
}

// Notifier dispatches fire-and-forget events.
type Notifier interface {
	Notify(ctx context.Context, event string, payload interface{})
}

// Engine drives an order through the status chain. Scheduled
// transitions are delivered at least once with no ordering guarantee,
// so every handler re-checks the current status and applies the
// transition only when it still moves the order forward.
type Engine struct {
	store     Store
	scheduler Scheduler
	notifier  Notifier
}

func NewEngine(store Store, scheduler Scheduler, notifier Notifier) *Engine {
	return &Engine{store: store, scheduler: scheduler, notifier: notifier}
}

// ScheduleProgression enqueues the whole delayed chain for an order.
// Already-fired or out-of-order transitions die in Advance, so
// scheduling is safe to repeat.
func (e *Engine) ScheduleProgression(ctx context.Context, orderID primitive.ObjectID) {
	for _, step := range ProgressionSchedule {
		task := StatusTask{OrderID: orderID.Hex(), Status: step.Status}
		if err := e.scheduler.Schedule(ctx, TaskOrderStatus, task, step.After); err != nil {
			log.Printf("[ORDER] [ERROR] scheduling %s for %s failed: %v", step.Status, orderID.Hex(), err)
		}
	}
}

// HandleStatusTask is the queue handler for scheduled transitions.
func (e *Engine) HandleStatusTask(ctx context.Context, payload json.RawMessage) error {
	var task StatusTask
	if err := json.Unmarshal(payload, &task); err != nil {
		log.Println("[ORDER] [ERROR] bad status task payload, dropping:", err)
		return nil
	}
	orderID, err := primitive.ObjectIDFromHex(task.OrderID)
	if err != nil {
		log.Println("[ORDER] [ERROR] bad order id in status task, dropping:", err)
		return nil
	}
	return e.Advance(ctx, orderID, task.Status)
}

// Advance applies one scheduled transition. A transition that arrives
// after the order went terminal, or out of order, is a no-op, not an
// error: the queue retrying it would change nothing.
func (e *Engine) Advance(ctx context.Context, orderID primitive.ObjectID, target string) error {
	order, err := e.store.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		log.Printf("[ORDER] [ERROR] status task for unknown order %s, dropping", orderID.Hex())
		return nil
	}
	if !CanAdvance(order.Status, target) {
		return nil
	}

	won, err := e.store.UpdateStatus(ctx, orderID, order.Status, target)
	if err != nil {
		return err
	}
	if !won {
		// Another delivery or a cancellation got there first.
		return nil
	}

	e.notifier.Notify(ctx, "order:status_changed", map[string]string{
		"orderId": orderID.Hex(),
		"status":  target,
	})
	return nil
}

// Cancel cancels the customer's order if the kitchen has not started.
// A completed payment is marked refunded; executing the refund is the
// payment collaborator's job.
func (e *Engine) Cancel(ctx context.Context, customerID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := e.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NotFound("order not found")
	}
	if order.CustomerID != customerID {
		return nil, apperror.Forbidden("order does not belong to this customer")
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, apperror.BadRequest("order is already cancelled")
	}
	if !CanCancel(order.Status) {
		return nil, apperror.BadRequest("restaurant has already started preparing your order")
	}

	won, err := e.store.UpdateStatus(ctx, orderID, order.Status, models.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperror.BadRequest("order can no longer be cancelled")
	}
	order.Status = models.OrderStatusCancelled

	if order.PaymentStatus == models.PaymentStatusPaid {
		if err := e.store.MarkRefunded(ctx, orderID); err != nil {
			return nil, err
		}
		order.PaymentStatus = models.PaymentStatusRefunded
		e.notifier.Notify(ctx, "payment:refund_requested", map[string]string{
			"orderId":    orderID.Hex(),
			"paymentRef": order.PaymentRef,
		})
	}

	e.notifier.Notify(ctx, "order:cancelled", map[string]string{"orderId": orderID.Hex()})
	return order, nil
}
