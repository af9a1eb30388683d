package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Scheduler is the slice of the task queue the notifier uses.
type Scheduler interface {
	Schedule(ctx context.Context, name string, payload interface{}, delay time.Duration) error
}

// TaskNotification is the queue name notification events are
// dispatched under.
const TaskNotification = "notification:dispatch"

// Event is a notification envelope. Delivery (email, push) happens in
// the queue worker; the order flow only enqueues.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload"`
}

// Notifier hands events to the delayed-task queue fire-and-forget: a
// notification failure must never fail the flow that raised it.
type Notifier struct {
	scheduler Scheduler
}

func NewNotifier(scheduler Scheduler) *Notifier {
	return &Notifier{scheduler: scheduler}
}

func (n *Notifier) Notify(ctx context.Context, event string, payload interface{}) {
	err := n.scheduler.Schedule(ctx, TaskNotification, Event{Name: event, Payload: payload}, 0)
	if err != nil {
		log.Printf("[NOTIFY] [ERROR] could not enqueue %s: %v", event, err)
	}
}

// HandleDispatch is the queue-side delivery handler. Transports (email,
// push) hang off here; the core only ever sees the enqueue.
func HandleDispatch(ctx context.Context, payload json.RawMessage) error {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Println("[NOTIFY] [ERROR] bad notification payload, dropping:", err)
		return nil
	}
	log.Printf("[NOTIFY] [INFO] dispatched %s", event.Name)
	return nil
}
