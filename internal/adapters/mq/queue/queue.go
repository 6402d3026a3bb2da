// Package queue defines the contract for feeding per-user update jobs to the
// cycle's worker pool.
//
// The orchestrator enqueues every registered user at the start of a cycle,
// closes the queue, and the pool drains it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/gitrank/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10000
)

// Job is one unit of cycle work: update a single user.
type Job struct {
	CycleID  string
	Username string
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns a channel that receives jobs as they become
	// available. The channel is closed when the queue is closed and
	// drained. Consumers that stop early leave undelivered jobs in the
	// queue; Drain recovers them.
	Dequeue(ctx context.Context) <-chan Job

	// Drain removes and returns every job still queued.
	Drain() []Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs; pending jobs are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	case <-ctx.Done():
		return false
	default:
		return false // queue is full
	}
}

// Dequeue returns a channel that receives jobs as they become available.
// The shared buffered channel is handed out directly so a consumer that
// stops early never strands a job it has already pulled; whatever nobody
// took stays queued for Drain.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Drain removes and returns every job still queued. Intended for the
// orchestrator after the worker pool stops, so jobs left behind by a
// cancelled cycle can still be accounted for.
func (q *InMemoryQueue) Drain() []Job {
	var out []Job
	for {
		select {
		case job, ok := <-q.jobs:
			if !ok {
				metrics.UpdateQueueSize(0)
				return out
			}
			out = append(out, job)
		default:
			metrics.UpdateQueueSize(len(q.jobs))
			return out
		}
	}
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.jobs)
}

// Close stops accepting jobs; pending jobs are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
