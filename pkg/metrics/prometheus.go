// Package metrics provides Prometheus metrics for the gitrank engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the gitrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Cycle Metrics - the heartbeat of the engine
	cyclesStarted   prometheus.Counter
	cyclesCompleted prometheus.Counter
	cyclesAborted   prometheus.Counter
	cyclesSkipped   prometheus.Counter
	cycleDuration   prometheus.Histogram
	lastCycleUnix   prometheus.Gauge

	// Per-user pipeline outcomes
	userOutcomes    *prometheus.CounterVec
	pipelineLatency prometheus.Histogram

	// GitHub API client
	apiCalls       prometheus.Counter
	apiErrors      *prometheus.CounterVec
	apiCallLatency prometheus.Histogram
	budgetRemaining prometheus.Gauge

	// Persistence
	persistErrors  prometheus.Counter
	storeLatency   prometheus.Histogram
	registeredUsers prometheus.Gauge

	// Queue / worker pool
	queueSize   prometheus.Gauge
	workerCount prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gitrank",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Register on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.cyclesStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycles_started_total",
		Help:      "Total number of update cycles started",
	})

	m.cyclesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycles_completed_total",
		Help:      "Total number of update cycles that ran to completion",
	})

	m.cyclesAborted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycles_aborted_total",
		Help:      "Total number of update cycles aborted on infrastructure failure",
	})

	m.cyclesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycles_skipped_total",
		Help:      "Total number of scheduled cycles skipped because one was already running",
	})

	m.cycleDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycle_duration_seconds",
		Help:      "Histogram of full update cycle duration in seconds",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
	})

	m.lastCycleUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_cycle_completed_unix",
		Help:      "Unix timestamp of the last completed update cycle",
	})

	m.userOutcomes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "user_outcomes_total",
			Help:      "Per-user pipeline outcomes by result",
		},
		[]string{"outcome"},
	)

	m.pipelineLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pipeline_latency_milliseconds",
		Help:      "Fetch-score-persist latency per user in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.apiCalls = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "github_api_calls_total",
		Help:      "Total number of outbound GitHub API requests",
	})

	m.apiErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "github_api_errors_total",
			Help:      "GitHub API failures by error kind",
		},
		[]string{"kind"},
	)

	m.apiCallLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "github_api_latency_milliseconds",
		Help:      "GitHub API round-trip latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.budgetRemaining = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limit_budget_remaining",
		Help:      "Remaining GitHub rate-limit budget for the current cycle",
	})

	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_errors_total",
		Help:      "Total number of failed persistence writes",
	})

	m.storeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Persistence gateway operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.registeredUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registered_users",
		Help:      "Number of registered users tracked on the leaderboard",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the cycle job queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of pipeline workers in the current cycle",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordCycleStarted increments the started cycles counter.
func RecordCycleStarted() {
	globalManager.cyclesStarted.Inc()
}

// RecordCycleCompleted increments the completed cycles counter and stamps
// the completion time.
func RecordCycleCompleted(duration time.Duration) {
	globalManager.cyclesCompleted.Inc()
	globalManager.cycleDuration.Observe(duration.Seconds())
	globalManager.lastCycleUnix.Set(float64(time.Now().Unix()))
}

// RecordCycleAborted increments the aborted cycles counter.
func RecordCycleAborted() {
	globalManager.cyclesAborted.Inc()
}

// RecordCycleSkipped increments the skipped (overlap) cycles counter.
func RecordCycleSkipped() {
	globalManager.cyclesSkipped.Inc()
}

// RecordUserOutcome increments the per-user outcome counter.
func RecordUserOutcome(outcome string) {
	globalManager.userOutcomes.WithLabelValues(outcome).Inc()
}

// RecordPipelineLatency records one user's pipeline latency in milliseconds.
func RecordPipelineLatency(latencyMs float64) {
	globalManager.pipelineLatency.Observe(latencyMs)
}

// RecordAPICall increments the outbound API call counter.
func RecordAPICall() {
	globalManager.apiCalls.Inc()
}

// RecordAPIError increments the API error counter for an error kind.
func RecordAPIError(kind string) {
	globalManager.apiErrors.WithLabelValues(kind).Inc()
}

// RecordAPICallLatency records one API round trip in milliseconds.
func RecordAPICallLatency(latencyMs float64) {
	globalManager.apiCallLatency.Observe(latencyMs)
}

// UpdateBudgetRemaining sets the remaining rate-limit budget gauge.
func UpdateBudgetRemaining(remaining int64) {
	globalManager.budgetRemaining.Set(float64(remaining))
}

// RecordPersistError increments the persistence error counter.
func RecordPersistError() {
	globalManager.persistErrors.Inc()
}

// RecordStoreLatency records a persistence gateway operation in milliseconds.
func RecordStoreLatency(latencyMs float64) {
	globalManager.storeLatency.Observe(latencyMs)
}

// UpdateRegisteredUsers sets the registered users gauge.
func UpdateRegisteredUsers(count int) {
	globalManager.registeredUsers.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
