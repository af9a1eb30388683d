package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Policy declares the retry behavior once for every task: how many
// attempts a task gets and the exponential backoff between them.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseBackoff: 5 * time.Second,
}

// Backoff returns the delay before the given retry attempt (1-based):
// base, 2x base, 4x base, ...
func (p Policy) Backoff(attempt int) time.Duration {
	backoff := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

// Task is the serialized unit of delayed work.
type Task struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Queue is a durable delayed-task queue over two Redis sorted sets:
// delayed tasks scored by due time, claimed tasks scored by lease
// expiry. A claim atomically moves due members from delayed to
// processing, so a worker crash only lets the lease expire and the task
// run again: at-least-once, never lost.
type Queue struct {
	client   *redis.Client
	delayed  string
	claimed  string
	policy   Policy
	leaseTTL time.Duration
}

// moveScript moves up to ARGV[2] members of KEYS[1] scored at or below
// ARGV[1] into KEYS[2] with score ARGV[3], returning the moved members.
var moveScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
	redis.call('ZREM', KEYS[1], member)
	redis.call('ZADD', KEYS[2], ARGV[3], member)
end
return due
`)

func New(client *redis.Client, policy Policy) *Queue {
	return &Queue{
		client:   client,
		delayed:  "tasks:delayed",
		claimed:  "tasks:claimed",
		policy:   policy,
		leaseTTL: 30 * time.Second,
	}
}

// Schedule enqueues a named task to fire after delay. The payload is
// stored as JSON and handed back to the handler verbatim.
func (q *Queue) Schedule(ctx context.Context, name string, payload interface{}, delay time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := Task{
		ID:       uuid.New().String(),
		Name:     name,
		Payload:  raw,
		Attempts: 0,
	}
	return q.add(ctx, task, time.Now().Add(delay))
}

func (q *Queue) add(ctx context.Context, task Task, due time.Time) error {
	member, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.delayed, &redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: string(member),
	}).Err()
}

// claim leases up to limit due tasks for this worker.
func (q *Queue) claim(ctx context.Context, now time.Time, limit int) ([]claimedTask, error) {
	lease := now.Add(q.leaseTTL)
	values, err := moveScript.Run(ctx, q.client,
		[]string{q.delayed, q.claimed},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.Itoa(limit),
		strconv.FormatInt(lease.UnixMilli(), 10),
	).StringSlice()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	tasks := make([]claimedTask, 0, len(values))
	for _, value := range values {
		var task Task
		if err := json.Unmarshal([]byte(value), &task); err != nil {
			// Unparseable member: drop it rather than loop forever.
			q.client.ZRem(ctx, q.claimed, value)
			continue
		}
		tasks = append(tasks, claimedTask{Task: task, member: value})
	}
	return tasks, nil
}

// reclaim moves tasks whose lease expired back into the delayed set so
// another worker picks them up.
func (q *Queue) reclaim(ctx context.Context, now time.Time) error {
	return moveScript.Run(ctx, q.client,
		[]string{q.claimed, q.delayed},
		strconv.FormatInt(now.UnixMilli(), 10),
		"100",
		strconv.FormatInt(now.UnixMilli(), 10),
	).Err()
}

// ack drops a finished task from the claimed set.
func (q *Queue) ack(ctx context.Context, task claimedTask) error {
	return q.client.ZRem(ctx, q.claimed, task.member).Err()
}

// nextRetry returns the task's next attempt and its due time. The
// second return is false once the policy's attempts are spent.
func (p Policy) nextRetry(task Task, now time.Time) (Task, time.Time, bool) {
	task.Attempts++
	if task.Attempts >= p.MaxAttempts {
		return task, time.Time{}, false
	}
	return task, now.Add(p.Backoff(task.Attempts)), true
}

// retryScript swaps the claimed member for its next attempt in the
// delayed set in one atomic call, so a crash can never drop the claim
// without the retry being scheduled.
var retryScript = redis.NewScript(`
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// retry re-queues a failed task with backoff, or drops it once the
// policy's attempts are spent. Returns whether another attempt was
// scheduled.
func (q *Queue) retry(ctx context.Context, task claimedTask) (bool, error) {
	next, due, ok := q.policy.nextRetry(task.Task, time.Now())
	if !ok {
		return false, q.ack(ctx, task)
	}
	member, err := json.Marshal(next)
	if err != nil {
		return false, err
	}
	err = retryScript.Run(ctx, q.client,
		[]string{q.claimed, q.delayed},
		task.member,
		strconv.FormatInt(due.UnixMilli(), 10),
		string(member),
	).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

type claimedTask struct {
	Task
	member string
}
