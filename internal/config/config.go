// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" keeps state
	// in-process.
	DBPath string `koanf:"db_path"`

	// GitHubToken authenticates outbound API calls. Empty means
	// unauthenticated with the small public quota.
	GitHubToken string `koanf:"github_token"`

	// GitHubAPIBase overrides the GitHub API base URL, e.g. for GitHub
	// Enterprise or tests.
	GitHubAPIBase string `koanf:"github_api_base"`

	// RequestTimeoutMS bounds each outbound GitHub request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxRetries caps attempts per GitHub request.
	MaxRetries int `koanf:"max_retries"`

	// BackoffBaseMS is the base delay for exponential retry backoff.
	BackoffBaseMS int `koanf:"backoff_base_ms"`

	// PerPage and PageLimit bound pagination on list endpoints.
	PerPage   int `koanf:"per_page"`
	PageLimit int `koanf:"page_limit"`

	// UpdateIntervalMinutes is the time between scheduled update cycles.
	UpdateIntervalMinutes int `koanf:"update_interval_minutes"`

	// WorkerCount sets the number of concurrent pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// RateLimit is the per-cycle GitHub call budget; RateLimitMargin is
	// the slice of it left unspent.
	RateLimit       int64 `koanf:"rate_limit"`
	RateLimitMargin int64 `koanf:"rate_limit_margin"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ScoreWeights maps activity kinds to their score weights.
	ScoreWeights map[string]float64 `koanf:"score_weights"`

	// AchievementThresholds maps achievement keys to their lifetime
	// count thresholds.
	AchievementThresholds map[string]int64 `koanf:"achievement_thresholds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		DBPath:                "gitrank.db",
		GitHubAPIBase:         "https://api.github.com",
		RequestTimeoutMS:      30_000,
		MaxRetries:            3,
		BackoffBaseMS:         500,
		PerPage:               100,
		PageLimit:             10,
		UpdateIntervalMinutes: 360,
		WorkerCount:           runtime.NumCPU(),
		RateLimit:             5000,
		RateLimitMargin:       50,
		MaxLeaderboardLimit:   100,
		ScoreWeights: map[string]float64{
			"prs_opened":        2.0,
			"prs_merged":        5.0,
			"issues_created":    1.0,
			"issues_closed":     3.0,
			"repos_contributed": 2.0,
			"stars_given":       0.5,
			"commits":           0.1,
		},
		AchievementThresholds: map[string]int64{
			"pr_master":        50,
			"bug_hunter":       25,
			"code_warrior":     1000,
			"star_gazer":       100,
			"open_source_hero": 20,
		},
	}
}
