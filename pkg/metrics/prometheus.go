// Package metrics provides Prometheus metrics for the ballotboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ballot pipeline
	ballotsSubmitted prometheus.Counter
	ballotsDuplicate prometheus.Counter
	ballotsStored    prometheus.Counter
	ballotsRejected  *prometheus.CounterVec
	ballotLength     prometheus.Histogram

	// Aggregation
	talliesComputed   prometheus.Counter
	seriesBuilt       prometheus.Counter
	standingsLatency  prometheus.Histogram
	seriesLatency     prometheus.Histogram
	seriesWeeksUsed   prometheus.Gauge
	rosterSize        prometheus.Gauge
	weeksTotal        prometheus.Gauge
	standingsTiedRows prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ballotboard",
		subsystem:        "",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.ballotsSubmitted = m.counter("ballots_submitted_total", "Ballots accepted for ingestion")
	m.ballotsDuplicate = m.counter("ballots_duplicate_total", "Ballot submissions replayed through an idempotency key")
	m.ballotsStored = m.counter("ballots_stored_total", "Ballots written to the store by the ingestion workers")
	m.ballotsRejected = m.counterVec("ballots_rejected_total", "Ballot submissions rejected during validation", "reason")
	m.ballotLength = m.histogram("ballot_length", "Number of players ranked on a submitted ballot",
		[]float64{1, 2, 3, 5, 8, 12, 16, 24, 32, 48, 64})

	m.talliesComputed = m.counter("tallies_computed_total", "Weekly tallies computed")
	m.seriesBuilt = m.counter("series_built_total", "Rank time series built")
	m.standingsLatency = m.histogram("standings_latency_milliseconds", "Time to load and rank one week's standings", m.histogramBuckets)
	m.seriesLatency = m.histogram("series_latency_milliseconds", "Time to load and build the rank time series", m.histogramBuckets)
	m.seriesWeeksUsed = m.gauge("series_weeks_used", "Weeks included in the last series built")
	m.rosterSize = m.gauge("roster_size", "Players on the roster")
	m.weeksTotal = m.gauge("weeks_total", "Weeks known to the store")
	m.standingsTiedRows = m.gauge("standings_tied_rows", "Tied rows in the last standings computed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "backend", "op")

	m.queueSize = m.gauge("queue_size", "Ballots waiting in the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum ingestion queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Ingestion queue utilization (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Ballots enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Ballots dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueue attempts")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Ingestion workers running")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Ballots written per second by the worker pool")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Ingestion worker failures")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ballot pipeline.

func (m *Manager) RecordBallotSubmitted(length int) {
	m.ballotsSubmitted.Inc()
	m.ballotLength.Observe(float64(length))
}
func (m *Manager) RecordBallotDuplicate()              { m.ballotsDuplicate.Inc() }
func (m *Manager) RecordBallotStored()                 { m.ballotsStored.Inc() }
func (m *Manager) RecordBallotRejected(reason string)  { m.ballotsRejected.WithLabelValues(reason).Inc() }
func (m *Manager) RecordTallyComputed()                { m.talliesComputed.Inc() }
func (m *Manager) RecordStandingsLatency(ms float64)   { m.standingsLatency.Observe(ms) }
func (m *Manager) UpdateStandingsTiedRows(n int)       { m.standingsTiedRows.Set(float64(n)) }
func (m *Manager) UpdateRosterSize(n int)              { m.rosterSize.Set(float64(n)) }
func (m *Manager) UpdateWeeksTotal(n int)              { m.weeksTotal.Set(float64(n)) }
func (m *Manager) RecordSeriesLatency(ms float64)      { m.seriesLatency.Observe(ms) }
func (m *Manager) RecordSeriesBuilt(weeksUsed int) {
	m.seriesBuilt.Inc()
	m.seriesWeeksUsed.Set(float64(weeksUsed))
}

// HTTP.

func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// Store.

func (m *Manager) RecordStoreLatency(backend, op string, ms float64) {
	m.storeLatency.WithLabelValues(backend, op).Observe(ms)
}
func (m *Manager) RecordStoreError(backend, op string) {
	m.storeErrors.WithLabelValues(backend, op).Inc()
}

// Queue.

func (m *Manager) UpdateQueueSize(size int)               { m.queueSize.Set(float64(size)) }
func (m *Manager) UpdateQueueCapacity(capacity int)       { m.queueCapacity.Set(float64(capacity)) }
func (m *Manager) UpdateQueueUtilization(ratio float64)   { m.queueUtilization.Set(ratio) }
func (m *Manager) RecordQueueEnqueue()                    { m.queueEnqueueRate.Inc() }
func (m *Manager) RecordQueueDequeue()                    { m.queueDequeueRate.Inc() }
func (m *Manager) RecordQueueEnqueueError()               { m.queueEnqueueErrors.Inc() }
func (m *Manager) RecordQueueProcessingLatency(ms float64) { m.queueProcessingLatency.Observe(ms) }

// Workers.

func (m *Manager) UpdateWorkerCount(count int)                 { m.workerCount.Set(float64(count)) }
func (m *Manager) UpdateWorkerMessagesPerSecond(rate float64)  { m.workerMessagesPerSecond.Set(rate) }
func (m *Manager) RecordWorkerProcessingLatency(ms float64)    { m.workerProcessingLatency.Observe(ms) }
func (m *Manager) RecordWorkerError()                          { m.workerErrors.Inc() }

// Errors.

func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}
func (m *Manager) RecordErrorByType(errorType, severity string) {
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}
func (m *Manager) RecordErrorLatency(component, errorType string, ms float64) {
	m.errorLatency.WithLabelValues(component, errorType).Observe(ms)
}

// System.

func (m *Manager) UpdateSystemMemoryUsage(bytes uint64)  { m.systemMemoryUsage.Set(float64(bytes)) }
func (m *Manager) UpdateSystemGoroutineCount(count int)   { m.systemGoroutineCount.Set(float64(count)) }
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) { m.systemGCPauseTime.Observe(pauseMs) }

// Package-level recorders delegate to the global manager.

// RecordBallotSubmitted counts a ballot accepted for ingestion and its length.
func RecordBallotSubmitted(length int) { globalManager.RecordBallotSubmitted(length) }

// RecordBallotDuplicate counts an idempotent replay.
func RecordBallotDuplicate() { globalManager.RecordBallotDuplicate() }

// RecordBallotStored counts a ballot written by a worker.
func RecordBallotStored() { globalManager.RecordBallotStored() }

// RecordBallotRejected counts a rejected ballot by reason.
func RecordBallotRejected(reason string) { globalManager.RecordBallotRejected(reason) }

// RecordTallyComputed counts one weekly tally.
func RecordTallyComputed() { globalManager.RecordTallyComputed() }

// RecordStandingsLatency observes standings latency in milliseconds.
func RecordStandingsLatency(ms float64) { globalManager.RecordStandingsLatency(ms) }

// UpdateStandingsTiedRows sets the tied-row gauge.
func UpdateStandingsTiedRows(n int) { globalManager.UpdateStandingsTiedRows(n) }

// UpdateRosterSize sets the roster gauge.
func UpdateRosterSize(n int) { globalManager.UpdateRosterSize(n) }

// UpdateWeeksTotal sets the weeks gauge.
func UpdateWeeksTotal(n int) { globalManager.UpdateWeeksTotal(n) }

// RecordSeriesLatency observes series latency in milliseconds.
func RecordSeriesLatency(ms float64) { globalManager.RecordSeriesLatency(ms) }

// RecordSeriesBuilt counts a series build and records the weeks it used.
func RecordSeriesBuilt(weeksUsed int) { globalManager.RecordSeriesBuilt(weeksUsed) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, ms)
}

// RecordStoreLatency observes a store operation.
func RecordStoreLatency(backend, op string, ms float64) {
	globalManager.RecordStoreLatency(backend, op, ms)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(backend, op string) { globalManager.RecordStoreError(backend, op) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.UpdateQueueSize(size) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.UpdateQueueCapacity(capacity) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.UpdateQueueUtilization(ratio) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.RecordQueueEnqueue() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.RecordQueueDequeue() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.RecordQueueEnqueueError() }

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(ms float64) { globalManager.RecordQueueProcessingLatency(ms) }

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.UpdateWorkerCount(count) }

// UpdateWorkerMessagesPerSecond sets the pool throughput.
func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.UpdateWorkerMessagesPerSecond(rate) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(ms float64) { globalManager.RecordWorkerProcessingLatency(ms) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.RecordWorkerError() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) { globalManager.RecordErrorByType(errorType, severity) }

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, ms float64) {
	globalManager.RecordErrorLatency(component, errorType, ms)
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
