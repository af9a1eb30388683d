package queue

import (
	"testing"
	"time"
)

func TestPolicyBackoffDoubles(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseBackoff: 5 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestNextRetrySchedulesWithBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseBackoff: 5 * time.Second}
	now := time.Now()

	task := Task{ID: "t1", Name: "order:status", Attempts: 0}

	next, due, ok := p.nextRetry(task, now)
	if !ok {
		t.Fatal("first failure must be retried")
	}
	if next.Attempts != 1 {
		t.Fatalf("expected attempt 1, got %d", next.Attempts)
	}
	if due != now.Add(5*time.Second) {
		t.Fatalf("expected due at now+5s, got %v", due.Sub(now))
	}

	next, due, ok = p.nextRetry(next, now)
	if !ok {
		t.Fatal("second failure must be retried")
	}
	if due != now.Add(10*time.Second) {
		t.Fatalf("expected due at now+10s, got %v", due.Sub(now))
	}

	if _, _, ok = p.nextRetry(next, now); ok {
		t.Fatal("task must be dropped once attempts are spent")
	}
}

func TestNextRetryKeepsTaskIdentity(t *testing.T) {
	p := DefaultPolicy
	task := Task{ID: "t1", Name: "notification:dispatch", Attempts: 0}

	next, _, ok := p.nextRetry(task, time.Now())
	if !ok {
		t.Fatal("expected a retry")
	}
	if next.ID != task.ID || next.Name != task.Name {
		t.Fatalf("retry must keep id and name, got %+v", next)
	}
}

func TestDefaultPolicy(t *testing.T) {
	if DefaultPolicy.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", DefaultPolicy.MaxAttempts)
	}
	if DefaultPolicy.Backoff(1) != 5*time.Second {
		t.Fatalf("expected 5s base backoff, got %v", DefaultPolicy.Backoff(1))
	}
}
