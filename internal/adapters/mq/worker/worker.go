// Package worker runs the per-user update pipeline: fetch activity, compute
// the score, evaluate achievements, persist. A pool of workers drains the
// cycle's job queue; a failure for one user never stops the others.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/gitrank/internal/adapters/github"
	"github.com/okian/gitrank/internal/adapters/mq/queue"
	"github.com/okian/gitrank/internal/domain/model"
	"github.com/okian/gitrank/pkg/logger"
	"github.com/okian/gitrank/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 4
	workerShutdownTimeout = 5 * time.Second
)

// Pipeline stages reported alongside outcomes.
const (
	StageFetch     = "fetch"
	StageCalculate = "calculate"
	StageEvaluate  = "evaluate"
	StagePersist   = "persist"
)

// Job aliases the queue job type for consistency.
type Job = queue.Job

// Fetcher retrieves a user's activity snapshot. The budget tracker is bound
// in by the cycle, so workers stay unaware of rate-limit bookkeeping.
type Fetcher interface {
	FetchActivity(ctx context.Context, username string) (model.ActivityRecord, error)
}

// Calculator computes a score breakdown from activity counts.
type Calculator interface {
	Score(rec model.ActivityRecord) model.ScoreBreakdown
}

// Evaluator computes the achievement set from lifetime counts.
type Evaluator interface {
	Evaluate(lifetime model.ActivityRecord, earned []string) []string
}

// Gateway is the slice of the persistence store the pipeline needs.
type Gateway interface {
	LifetimeCounts(ctx context.Context, username string) (model.ActivityRecord, error)
	Achievements(ctx context.Context, username string) ([]string, error)
	UpsertResult(ctx context.Context, username string, counts model.ActivityRecord, score model.ScoreBreakdown, achievements []string) error
}

// Recorder receives the outcome of each processed job.
type Recorder interface {
	Record(username string, outcome model.Outcome, stage string, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until its queue is drained or the context ends.
type Worker struct {
	queue      Queue
	fetcher    Fetcher
	calculator Calculator
	evaluator  Evaluator
	gateway    Gateway
	recorder   Recorder
	name       string

	done chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, f Fetcher, c Calculator, e Evaluator, g Gateway, r Recorder, opts ...Option) *Worker {
	w := &Worker{
		queue:      q,
		fetcher:    f,
		calculator: c,
		evaluator:  e,
		gateway:    g,
		recorder:   r,
		name:       "worker",
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run drains the job channel. It exits when the queue closes or the context
// is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// process runs the fetch → calculate → evaluate → persist pipeline for one
// user and reports the outcome. Errors never escape: each one becomes a
// per-user outcome.
func (w *Worker) process(ctx context.Context, job Job) {
	start := time.Now()
	defer func() {
		metrics.RecordPipelineLatency(float64(time.Since(start).Milliseconds()))
	}()

	snapshot, err := w.fetcher.FetchActivity(ctx, job.Username)
	if err != nil {
		w.recordFetchFailure(ctx, job, err)
		return
	}

	lifetime, err := w.gateway.LifetimeCounts(ctx, job.Username)
	if err != nil {
		w.fail(ctx, job, StagePersist, fmt.Errorf("load lifetime counts: %w", err))
		return
	}
	lifetime = lifetime.Merge(snapshot.Clamped())

	breakdown := w.calculator.Score(lifetime)

	earned, err := w.gateway.Achievements(ctx, job.Username)
	if err != nil {
		w.fail(ctx, job, StagePersist, fmt.Errorf("load achievements: %w", err))
		return
	}
	achievements := w.evaluator.Evaluate(lifetime, earned)

	if err := w.gateway.UpsertResult(ctx, job.Username, lifetime, breakdown, achievements); err != nil {
		w.fail(ctx, job, StagePersist, err)
		return
	}

	metrics.RecordUserOutcome(string(model.OutcomeSuccess))
	w.recorder.Record(job.Username, model.OutcomeSuccess, "", nil)
	w.logger.Debug(ctx, "user updated",
		logger.String("username", job.Username),
		logger.Float64("score", breakdown.Total),
		logger.Int("achievements", len(achievements)),
	)
}

// recordFetchFailure classifies a fetch error into an outcome.
func (w *Worker) recordFetchFailure(ctx context.Context, job Job, err error) {
	switch {
	case errors.Is(err, github.ErrRateLimited):
		metrics.RecordUserOutcome(string(model.OutcomeRateLimited))
		w.recorder.Record(job.Username, model.OutcomeRateLimited, StageFetch, err)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		metrics.RecordUserOutcome(string(model.OutcomeSkipped))
		w.recorder.Record(job.Username, model.OutcomeSkipped, StageFetch, err)
	default:
		w.fail(ctx, job, StageFetch, err)
	}
}

func (w *Worker) fail(ctx context.Context, job Job, stage string, err error) {
	metrics.RecordUserOutcome(string(model.OutcomeFailed))
	w.recorder.Record(job.Username, model.OutcomeFailed, stage, err)
	w.logger.Error(ctx, "user update failed",
		logger.String("username", job.Username),
		logger.String("stage", stage),
		logger.Error(err),
	)
}

// Pool manages a bounded set of workers for one cycle.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers sharing one queue.
func NewPool(workerCount int, q Queue, f Fetcher, c Calculator, e Evaluator, g Gateway, r Recorder) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(q, f, c, e, g, r, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)

	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has exited (queue drained or context done).
func (p *Pool) Wait() {
	for _, w := range p.workers {
		<-w.done
	}
}

// Shutdown waits for workers with a per-worker timeout, for callers that
// cannot block indefinitely.
func (p *Pool) Shutdown(ctx context.Context) error {
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
