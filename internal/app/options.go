package app

import (
	"time"

	"github.com/okian/gitrank/internal/domain/badge"
	"github.com/okian/gitrank/internal/domain/scoring"
	"github.com/okian/gitrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUpdateInterval sets the time between scheduled update cycles.
func WithUpdateInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.updateInterval = d
		}
	}
}

// WithWorkerCount sets the number of concurrent pipeline workers per cycle.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithCalculator sets the score calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithEvaluator sets the achievement evaluator.
func WithEvaluator(e *badge.Evaluator) Option {
	return func(s *Service) {
		if e != nil {
			s.evaluator = e
		}
	}
}

// WithRateLimit sets the per-cycle API call budget.
func WithRateLimit(limit int64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.rateLimit = limit
		}
	}
}

// WithRateLimitMargin keeps the last n calls of the budget unspent.
func WithRateLimitMargin(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.rateMargin = n
		}
	}
}
