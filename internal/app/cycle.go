package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gitrank/internal/domain/model"
	"github.com/okian/gitrank/internal/domain/types"
)

// Cycle lifecycle states.
const (
	StateIdle      = "idle"
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateAborted   = "aborted"
)

// Cycle is the bookkeeping for one update run. It implements the worker
// pool's Recorder so outcome tallies stay consistent under concurrency.
type Cycle struct {
	id        string
	startedAt time.Time

	mu          sync.Mutex
	state       string
	completedAt time.Time
	outcomes    map[model.Outcome]int
	deferred    []string
	total       int
}

// NewCycle creates a pending cycle with a fresh identifier.
func NewCycle() *Cycle {
	return &Cycle{
		id:       uuid.New().String(),
		state:    StatePending,
		outcomes: make(map[model.Outcome]int),
	}
}

// ID returns the cycle identifier.
func (c *Cycle) ID() string {
	return c.id
}

// Begin marks the cycle running over n users.
func (c *Cycle) Begin(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateRunning
	c.startedAt = time.Now().UTC()
	c.total = n
}

// Record tallies the outcome for one user. Users that did not complete get
// queued first in the next cycle.
func (c *Cycle) Record(username string, outcome model.Outcome, stage string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outcomes[outcome]++
	if outcome == model.OutcomeSkipped || outcome == model.OutcomeRateLimited {
		c.deferred = append(c.deferred, username)
	}
}

// Finish transitions the cycle to its terminal state. A cycle that processed
// users but succeeded for none of them counts as aborted.
func (c *Cycle) Finish() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.completedAt = time.Now().UTC()
	if c.total > 0 && c.outcomes[model.OutcomeSuccess] == 0 && c.outcomes[model.OutcomeFailed] == c.total {
		c.state = StateAborted
	} else {
		c.state = StateCompleted
	}
	return c.state
}

// Abort marks the cycle aborted before any user work ran.
func (c *Cycle) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completedAt = time.Now().UTC()
	c.state = StateAborted
}

// Deferred returns the users that should be retried first next cycle.
func (c *Cycle) Deferred() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.deferred))
	copy(out, c.deferred)
	return out
}

// Status returns a snapshot safe to serialize.
func (c *Cycle) Status() types.CycleStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := types.CycleStatus{
		State:    c.state,
		CycleID:  c.id,
		Outcomes: make(map[string]int, len(c.outcomes)),
	}
	for outcome, n := range c.outcomes {
		status.Outcomes[string(outcome)] = n
	}
	if !c.startedAt.IsZero() {
		t := c.startedAt
		status.StartedAt = &t
	}
	if !c.completedAt.IsZero() {
		t := c.completedAt
		status.CompletedAt = &t
	}
	return status
}
