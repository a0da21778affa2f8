// Package metrics provides Prometheus metrics for the rating engine service.
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

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingestion metrics
	gamesIngested   prometheus.Counter
	gamesDuplicate  prometheus.Counter
	gamesRejected   prometheus.Counter
	gameCount       prometheus.Gauge
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueFullDrops  prometheus.Counter
	workerCount     prometheus.Gauge
	ingestionErrors *prometheus.CounterVec

	// Solver metrics
	solverRuns       *prometheus.CounterVec
	solverFallbacks  *prometheus.CounterVec
	solverIterations *prometheus.HistogramVec
	solveDuration    *prometheus.HistogramVec
	rankDeficiencies prometheus.Counter
	residualWarnings prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "courtline",
		subsystem:        "ratings",
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
	auto := promauto.With(m.registry)

	m.gamesIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_ingested_total",
		Help:      "Total number of game records accepted into the store",
	})

	m.gamesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_duplicate_total",
		Help:      "Total number of duplicate game events detected by id",
	})

	m.gamesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_rejected_total",
		Help:      "Total number of game events rejected by validation",
	})

	m.gameCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "game_count",
		Help:      "Number of games currently in the store",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_queue_size",
		Help:      "Current number of game events waiting in the feed queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_queue_capacity",
		Help:      "Configured capacity of the feed queue",
	})

	m.queueFullDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_queue_full_total",
		Help:      "Total number of events refused because the feed queue was full",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_worker_count",
		Help:      "Number of ingestion workers",
	})

	m.ingestionErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingestion_errors_total",
		Help:      "Ingestion errors by kind",
	}, []string{"kind"})

	m.solverRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_runs_total",
		Help:      "Total solver runs by method",
	}, []string{"method"})

	m.solverFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_fallbacks_total",
		Help:      "Times a solver degraded to its fallback path, by method and kind",
	}, []string{"method", "kind"})

	m.solverIterations = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_iterations",
		Help:      "Iterations taken by iterative solver paths",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
	}, []string{"method"})

	m.solveDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solve_duration_milliseconds",
		Help:      "Wall-clock duration of a full solver run in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"method"})

	m.rankDeficiencies = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_deficiencies_total",
		Help:      "Times the design matrix was rank deficient (disconnected schedule)",
	})

	m.residualWarnings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "residual_warnings_total",
		Help:      "Times the least-squares orthogonality check exceeded tolerance",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// RecordGameIngested increments the ingested games counter.
func RecordGameIngested() {
	globalManager.gamesIngested.Inc()
}

// RecordGameDuplicate increments the duplicate events counter.
func RecordGameDuplicate() {
	globalManager.gamesDuplicate.Inc()
}

// RecordGameRejected increments the rejected events counter.
func RecordGameRejected() {
	globalManager.gamesRejected.Inc()
}

// UpdateGameCount sets the current number of stored games.
func UpdateGameCount(n int) {
	globalManager.gameCount.Set(float64(n))
}

// UpdateQueueSize sets the current feed queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured feed queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueFull increments the queue-full drop counter.
func RecordQueueFull() {
	globalManager.queueFullDrops.Inc()
}

// UpdateWorkerCount sets the current ingestion worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordIngestionError counts an ingestion error by kind.
func RecordIngestionError(kind string) {
	globalManager.ingestionErrors.WithLabelValues(kind).Inc()
}

// RecordSolverRun counts a completed solver run.
func RecordSolverRun(method string) {
	globalManager.solverRuns.WithLabelValues(method).Inc()
}

// RecordSolverFallback counts a degradation to a fallback path.
func RecordSolverFallback(method, kind string) {
	globalManager.solverFallbacks.WithLabelValues(method, kind).Inc()
}

// RecordSolverIterations observes how many iterations an iterative path took.
func RecordSolverIterations(method string, iterations int) {
	globalManager.solverIterations.WithLabelValues(method).Observe(float64(iterations))
}

// RecordSolveDuration observes a solver run's wall-clock duration.
func RecordSolveDuration(method string, durationMs float64) {
	globalManager.solveDuration.WithLabelValues(method).Observe(durationMs)
}

// RecordRankDeficiency counts a rank-deficient design matrix.
func RecordRankDeficiency() {
	globalManager.rankDeficiencies.Inc()
}

// RecordResidualWarning counts an orthogonality-check violation.
func RecordResidualWarning() {
	globalManager.residualWarnings.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
