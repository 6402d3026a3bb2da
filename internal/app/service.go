// Package app orchestrates periodic update cycles: it enumerates registered
// users, feeds them through the worker pool under a shared rate-limit budget,
// and exposes the results to the HTTP layer.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gitrank/internal/adapters/github"
	"github.com/okian/gitrank/internal/adapters/mq/queue"
	"github.com/okian/gitrank/internal/adapters/mq/worker"
	"github.com/okian/gitrank/internal/adapters/repository"
	"github.com/okian/gitrank/internal/domain/badge"
	"github.com/okian/gitrank/internal/domain/budget"
	"github.com/okian/gitrank/internal/domain/model"
	"github.com/okian/gitrank/internal/domain/scoring"
	"github.com/okian/gitrank/internal/domain/types"
	"github.com/okian/gitrank/pkg/logger"
	"github.com/okian/gitrank/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultUpdateInterval = 6 * time.Hour
	defaultWorkerCount    = 4
)

// Service schedules update cycles and mediates between the HTTP layer, the
// store and the GitHub adapter.
type Service struct {
	store      repository.Store
	fetcher    github.Fetcher
	calculator *scoring.Calculator
	evaluator  *badge.Evaluator

	updateInterval time.Duration
	workerCount    int
	rateLimit      int64
	rateMargin     int64

	mu       sync.Mutex
	current  *Cycle
	last     *Cycle
	deferred []string
	budget   budget.Tracker

	trigger chan chan error
	cancel  context.CancelFunc
	done    chan struct{}

	logger logger.Logger
}

// NewService creates the orchestrator with configuration options.
func NewService(store repository.Store, fetcher github.Fetcher, opts ...Option) *Service {
	s := &Service{
		store:          store,
		fetcher:        fetcher,
		calculator:     scoring.NewCalculator(),
		evaluator:      badge.NewEvaluator(),
		updateInterval: defaultUpdateInterval,
		workerCount:    defaultWorkerCount,
		trigger:        make(chan chan error),
		logger:         logger.Get().Named("app"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the scheduler loop. The first cycle runs immediately.
func (s *Service) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(runCtx)
	s.logger.Info(ctx, "scheduler started",
		logger.Duration("update_interval", s.updateInterval),
		logger.Int("worker_count", s.workerCount),
	)
}

// Stop cancels the scheduler and waits for an in-flight cycle to wind down.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return ErrNotStarted
	}
	s.cancel()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Running() {
				metrics.RecordCycleSkipped()
				s.logger.Warn(ctx, "cycle still running at tick, skipping")
				continue
			}
			s.runCycle(ctx)
		case reply := <-s.trigger:
			if s.Running() {
				reply <- ErrCycleRunning
				continue
			}
			reply <- nil
			s.runCycle(ctx)
		}
	}
}

// RunNow triggers an update cycle outside the schedule. Returns
// ErrCycleRunning if one is already in flight.
func (s *Service) RunNow(ctx context.Context) error {
	if s.cancel == nil {
		return ErrNotStarted
	}
	if s.Running() {
		return ErrCycleRunning
	}

	reply := make(chan error, 1)
	select {
	case s.trigger <- reply:
		return <-reply
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a cycle is currently in flight.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// runCycle executes one full update cycle: list users, enqueue them with
// deferred users first, drain through the pool, record terminal state.
func (s *Service) runCycle(ctx context.Context) {
	cycle := NewCycle()
	tracker := budget.NewTracker(s.budgetOptions()...)

	s.mu.Lock()
	s.current = cycle
	s.budget = tracker
	carryover := s.deferred
	s.deferred = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.last = s.current
		s.current = nil
		s.deferred = cycle.Deferred()
		s.mu.Unlock()
	}()

	metrics.RecordCycleStarted()
	start := time.Now()

	usernames, err := s.store.ListUsernames(ctx)
	if err != nil {
		cycle.Abort()
		metrics.RecordCycleAborted()
		s.logger.Error(ctx, "cycle aborted, listing users failed",
			logger.String("cycle_id", cycle.ID()),
			logger.Error(err),
		)
		return
	}
	metrics.UpdateRegisteredUsers(len(usernames))

	ordered := frontload(usernames, carryover)
	cycle.Begin(len(ordered))

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(ordered) + 1))
	for _, username := range ordered {
		if !q.Enqueue(ctx, queue.Job{CycleID: cycle.ID(), Username: username}) {
			recordSkipped(cycle, username, ctx.Err())
		}
	}
	_ = q.Close()

	fetch := &budgetFetcher{fetcher: s.fetcher, budget: tracker}
	pool := worker.NewPool(s.workerCount, q, fetch, s.calculator, s.evaluator, s.store, cycle)
	pool.Start(ctx)
	pool.Wait()

	// A cancelled cycle leaves undelivered jobs behind; every one of them
	// still gets an outcome so the tally and the next cycle's carryover
	// stay complete.
	for _, job := range q.Drain() {
		recordSkipped(cycle, job.Username, ctx.Err())
	}

	state := cycle.Finish()
	switch state {
	case StateAborted:
		metrics.RecordCycleAborted()
	default:
		metrics.RecordCycleCompleted(time.Since(start))
	}
	metrics.UpdateBudgetRemaining(tracker.Remaining())

	status := cycle.Status()
	s.logger.Info(ctx, "cycle finished",
		logger.String("cycle_id", cycle.ID()),
		logger.String("state", state),
		logger.Int("users", len(ordered)),
		logger.Int("success", status.Outcomes[string(model.OutcomeSuccess)]),
		logger.Int("failed", status.Outcomes[string(model.OutcomeFailed)]),
		logger.Int("rate_limited", status.Outcomes[string(model.OutcomeRateLimited)]),
		logger.Int("skipped", status.Outcomes[string(model.OutcomeSkipped)]),
		logger.Duration("elapsed", time.Since(start)),
	)
}

// recordSkipped tallies a user the cycle never processed.
func recordSkipped(cycle *Cycle, username string, err error) {
	metrics.RecordUserOutcome(string(model.OutcomeSkipped))
	cycle.Record(username, model.OutcomeSkipped, "", err)
}

func (s *Service) budgetOptions() []budget.Option {
	var opts []budget.Option
	if s.rateLimit > 0 {
		opts = append(opts, budget.WithLimit(s.rateLimit))
	}
	if s.rateMargin > 0 {
		opts = append(opts, budget.WithSafetyMargin(s.rateMargin))
	}
	return opts
}

// frontload orders usernames so carryover users from the previous cycle come
// first, without duplicating or inventing entries.
func frontload(usernames, carryover []string) []string {
	if len(carryover) == 0 {
		return usernames
	}

	registered := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		registered[u] = true
	}

	ordered := make([]string, 0, len(usernames))
	seen := make(map[string]bool, len(usernames))
	for _, u := range carryover {
		if registered[u] && !seen[u] {
			ordered = append(ordered, u)
			seen[u] = true
		}
	}
	for _, u := range usernames {
		if !seen[u] {
			ordered = append(ordered, u)
			seen[u] = true
		}
	}
	return ordered
}

// budgetFetcher binds the cycle's budget tracker into the fetch interface the
// workers see.
type budgetFetcher struct {
	fetcher github.Fetcher
	budget  budget.Tracker
}

func (f *budgetFetcher) FetchActivity(ctx context.Context, username string) (model.ActivityRecord, error) {
	return f.fetcher.FetchActivity(ctx, username, f.budget)
}

// RegisterUser verifies the GitHub profile exists and records the user.
func (s *Service) RegisterUser(ctx context.Context, username string) error {
	probe := budget.NewTracker(s.budgetOptions()...)
	if err := s.fetcher.ProfileExists(ctx, username, probe); err != nil {
		return fmt.Errorf("verify profile %q: %w", username, err)
	}

	profileURL := "https://github.com/" + username
	if err := s.store.RegisterUser(ctx, username, profileURL); err != nil {
		return err
	}

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateRegisteredUsers(n)
	}
	s.logger.Info(ctx, "user registered", logger.String("username", username))
	return nil
}

// Leaderboard returns the top-n entries.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.store.Leaderboard(ctx, n)
}

// Rank returns one user's current rank.
func (s *Service) Rank(ctx context.Context, username string) (repository.Entry, error) {
	return s.store.Rank(ctx, username)
}

// Status returns the state of the current or most recent cycle.
func (s *Service) Status() types.CycleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.current != nil:
		return s.current.Status()
	case s.last != nil:
		return s.last.Status()
	default:
		return types.CycleStatus{State: StateIdle}
	}
}

// GetStats returns aggregate service state.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return types.Stats{}, fmt.Errorf("count users: %w", err)
	}

	s.mu.Lock()
	var remaining int64
	if s.budget != nil {
		remaining = s.budget.Remaining()
	}
	s.mu.Unlock()

	return types.Stats{
		RegisteredUsers: count,
		UpdateInterval:  s.updateInterval.String(),
		WorkerCount:     s.workerCount,
		BudgetRemaining: remaining,
		LastCycle:       s.Status(),
	}, nil
}
