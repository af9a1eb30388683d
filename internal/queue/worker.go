package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler processes one task payload. Delivery is at-least-once and
// tasks carry no cross-task ordering guarantee, so handlers must
// re-check current state before mutating anything.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Worker polls the queue and dispatches claimed tasks to registered
// handlers on a fixed-size pool.
type Worker struct {
	queue        *Queue
	handlers     map[string]Handler
	workers      int
	pollInterval time.Duration
	taskTimeout  time.Duration
}

func NewWorker(q *Queue, workers int) *Worker {
	return &Worker{
		queue:        q,
		handlers:     make(map[string]Handler),
		workers:      workers,
		pollInterval: time.Second,
		taskTimeout:  30 * time.Second,
	}
}

// Handle registers the handler for a task name. Must be called before
// Run.
func (w *Worker) Handle(name string, handler Handler) {
	w.handlers[name] = handler
}

// Run polls for due tasks and processes them until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	tasks := make(chan claimedTask)

	g.Go(func() error {
		defer close(tasks)
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			now := time.Now()
			if err := w.queue.reclaim(ctx, now); err != nil {
				log.Println("[QUEUE] [ERROR] reclaim failed:", err)
			}
			claimed, err := w.queue.claim(ctx, now, w.workers*2)
			if err != nil {
				log.Println("[QUEUE] [ERROR] claim failed:", err)
				continue
			}
			for _, task := range claimed {
				select {
				case <-ctx.Done():
					return nil
				case tasks <- task:
				}
			}
		}
	})

	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for task := range tasks {
				w.process(ctx, task)
			}
			return nil
		})
	}

	return g.Wait()
}

func (w *Worker) process(ctx context.Context, task claimedTask) {
	handler, ok := w.handlers[task.Name]
	if !ok {
		log.Printf("[QUEUE] [ERROR] no handler for task %s, dropping", task.Name)
		if err := w.queue.ack(ctx, task); err != nil {
			log.Println("[QUEUE] [ERROR] ack failed:", err)
		}
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	if err := handler(taskCtx, task.Payload); err != nil {
		log.Printf("[QUEUE] [ERROR] task %s (%s) attempt %d failed: %v", task.Name, task.ID, task.Attempts+1, err)
		retried, retryErr := w.queue.retry(ctx, task)
		if retryErr != nil {
			log.Println("[QUEUE] [ERROR] retry scheduling failed:", retryErr)
		} else if !retried {
			log.Printf("[QUEUE] [ERROR] task %s (%s) dropped after %d attempts", task.Name, task.ID, w.queue.policy.MaxAttempts)
		}
		return
	}

	if err := w.queue.ack(ctx, task); err != nil {
		log.Println("[QUEUE] [ERROR] ack failed:", err)
	}
}
