// Package budget tracks the shared GitHub rate-limit budget for one update
// cycle. The tracker is the only mutable state touched by concurrent fetch
// workers, so every operation is an atomic check-and-update under one mutex.
package budget

import (
	"sync"
	"time"
)

// Default budget configuration constants.
const (
	defaultLimit        = 60 // unauthenticated GitHub core quota per hour
	defaultSafetyMargin = 5  // calls left unspent to protect other consumers
)

// Tracker is the shared rate-limit budget consulted before every outbound
// request within a cycle.
type Tracker interface {
	// Acquire atomically checks whether budget remains and consumes one
	// call if so. Returns false once the budget is exhausted.
	Acquire() bool

	// Observe folds the upstream rate-limit headers into the tracker.
	// The upstream value is authoritative and may only lower the local
	// estimate, never raise it above what Acquire already consumed.
	Observe(remaining int64, reset time.Time)

	// Exhausted reports whether the budget is spent for this cycle.
	Exhausted() bool

	// Remaining returns the current local estimate of calls left.
	Remaining() int64

	// ResetAt returns the upstream reset time, zero if never observed.
	ResetAt() time.Time
}

// Option applies a configuration option to the tracker.
type Option func(*tracker)

// WithLimit sets the initial call budget for the cycle.
func WithLimit(limit int64) Option {
	return func(t *tracker) {
		if limit > 0 {
			t.remaining = limit
		}
	}
}

// WithSafetyMargin keeps the last n calls of the upstream quota unspent.
func WithSafetyMargin(n int64) Option {
	return func(t *tracker) {
		if n >= 0 {
			t.margin = n
		}
	}
}

// tracker implements Tracker with a mutex-guarded counter.
type tracker struct {
	mu        sync.Mutex
	remaining int64
	margin    int64
	resetAt   time.Time
}

// NewTracker creates a budget tracker with configuration options.
func NewTracker(opts ...Option) Tracker {
	t := &tracker{
		remaining: defaultLimit,
		margin:    defaultSafetyMargin,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *tracker) Acquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.remaining <= t.margin {
		return false
	}
	t.remaining--
	return true
}

func (t *tracker) Observe(remaining int64, reset time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if remaining < t.remaining {
		t.remaining = remaining
	}
	if !reset.IsZero() {
		t.resetAt = reset
	}
}

func (t *tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining <= t.margin
}

func (t *tracker) Remaining() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *tracker) ResetAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resetAt
}
