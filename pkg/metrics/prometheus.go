package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the replay viewer.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Snapshot reconstruction
	snapshotRequests *prometheus.CounterVec
	snapshotLatency  prometheus.Histogram
	snapshotDrift    prometheus.Histogram

	// Record store
	storeQueryLatency *prometheus.HistogramVec
	malformedRecords  *prometheus.CounterVec
	replaysAvailable  prometheus.Gauge

	// Session index cache
	sessionCacheHits   prometheus.Counter
	sessionCacheMisses prometheus.Counter
	sessionLoads       *prometheus.CounterVec

	// Session prewarm
	prewarmQueueSize prometheus.Gauge
	prewarmJobs      *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "f1replay",
		subsystem:        "viewer",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.snapshotRequests = auto.NewCounterVec(
		m.counterOpts("snapshot_requests_total", "Snapshot reconstructions by outcome"),
		[]string{"outcome"},
	)
	m.snapshotLatency = auto.NewHistogram(
		m.histogramOpts("snapshot_latency_milliseconds", "Time to reconstruct a leaderboard snapshot", m.histogramBuckets),
	)
	m.snapshotDrift = auto.NewHistogram(
		m.histogramOpts("snapshot_drift_seconds", "Distance between requested time and the served record",
			[]float64{0, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120}),
	)

	m.storeQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("store_query_latency_milliseconds", "Record store query latency by operation", m.histogramBuckets),
		[]string{"operation"},
	)
	m.malformedRecords = auto.NewCounterVec(
		m.counterOpts("malformed_records_total", "Stored records that failed to decode"),
		[]string{"kind"},
	)
	m.replaysAvailable = auto.NewGauge(
		m.gaugeOpts("replays_available", "Number of replays found by the last catalog listing"),
	)

	m.sessionCacheHits = auto.NewCounter(
		m.counterOpts("session_cache_hits_total", "Session index lookups served from cache"),
	)
	m.sessionCacheMisses = auto.NewCounter(
		m.counterOpts("session_cache_misses_total", "Session index lookups that required a load"),
	)
	m.sessionLoads = auto.NewCounterVec(
		m.counterOpts("session_loads_total", "Session index loads by outcome"),
		[]string{"outcome"},
	)

	m.prewarmQueueSize = auto.NewGauge(
		m.gaugeOpts("prewarm_queue_size", "Replays waiting to be prewarmed"),
	)
	m.prewarmJobs = auto.NewCounterVec(
		m.counterOpts("prewarm_jobs_total", "Session prewarm jobs by outcome"),
		[]string{"outcome"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordSnapshotRequest counts a snapshot reconstruction by outcome
// ("ok", "empty", "malformed", "not_found", "error").
func RecordSnapshotRequest(outcome string) {
	globalManager.snapshotRequests.WithLabelValues(outcome).Inc()
}

// RecordSnapshotLatency records how long a reconstruction took.
func RecordSnapshotLatency(latencyMs float64) {
	globalManager.snapshotLatency.Observe(latencyMs)
}

// RecordSnapshotDrift records |requested - effective| in seconds.
func RecordSnapshotDrift(seconds float64) {
	if seconds < 0 {
		seconds = -seconds
	}
	globalManager.snapshotDrift.Observe(seconds)
}

// RecordStoreQueryLatency records a record store operation latency.
func RecordStoreQueryLatency(operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordMalformedRecord counts a record that failed to decode.
func RecordMalformedRecord(kind string) {
	globalManager.malformedRecords.WithLabelValues(kind).Inc()
}

// UpdateReplaysAvailable sets the number of replays in the catalog.
func UpdateReplaysAvailable(count int) {
	globalManager.replaysAvailable.Set(float64(count))
}

// RecordSessionCacheHit counts a cached session index lookup.
func RecordSessionCacheHit() {
	globalManager.sessionCacheHits.Inc()
}

// RecordSessionCacheMiss counts a session index lookup that needed a load.
func RecordSessionCacheMiss() {
	globalManager.sessionCacheMisses.Inc()
}

// RecordSessionLoad counts a session index load by outcome.
func RecordSessionLoad(outcome string) {
	globalManager.sessionLoads.WithLabelValues(outcome).Inc()
}

// UpdatePrewarmQueueSize sets the number of queued prewarm jobs.
func UpdatePrewarmQueueSize(size int) {
	globalManager.prewarmQueueSize.Set(float64(size))
}

// RecordPrewarmJob counts a finished prewarm job by outcome.
func RecordPrewarmJob(outcome string) {
	globalManager.prewarmJobs.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint increments the error counter for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the global collectors are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
