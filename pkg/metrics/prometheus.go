// Package metrics provides Prometheus metrics for the gradegoal service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingest
	eventsIngested *prometheus.CounterVec
	eventsDup      prometheus.Counter
	eventsRejected *prometheus.CounterVec
	eventsApplied  *prometheus.CounterVec
	applyLatency   prometheus.Histogram
	applyErrors    prometheus.Counter

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Workers
	workerCount  prometheus.Gauge
	workerActive prometheus.Gauge

	// Store
	studentsTracked prometheus.Gauge
	coursesTracked  prometheus.Gauge
	samplesDropped  prometheus.Counter

	// Analytics
	seriesComputed prometheus.Counter
	seriesWeeks    prometheus.Histogram
	probabilities  *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gradegoal",
		subsystem:        "analytics",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(m.counter("events_ingested_total",
		"Grade events accepted for processing"), []string{"kind"})
	m.eventsDup = auto.NewCounter(m.counter("events_duplicate_total",
		"Grade events dropped as duplicates"))
	m.eventsRejected = auto.NewCounterVec(m.counter("events_rejected_total",
		"Grade events rejected before enqueue"), []string{"reason"})
	m.eventsApplied = auto.NewCounterVec(m.counter("events_applied_total",
		"Grade events applied to the store"), []string{"kind"})
	m.applyLatency = auto.NewHistogram(m.histogram("apply_latency_milliseconds",
		"Time to apply one grade event", m.histogramBuckets))
	m.applyErrors = auto.NewCounter(m.counter("apply_errors_total",
		"Grade events that failed to apply"))

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Events waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueue_total", "Events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeue_total", "Events dequeued"))
	m.queueEnqueueErrs = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Failed enqueues"))

	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Configured workers"))
	m.workerActive = auto.NewGauge(m.gauge("worker_active_count", "Workers currently applying an event"))

	m.studentsTracked = auto.NewGauge(m.gauge("students_tracked", "Students held in memory"))
	m.coursesTracked = auto.NewGauge(m.gauge("courses_tracked", "Student courses held in memory"))
	m.samplesDropped = auto.NewCounter(m.counter("samples_dropped_total",
		"Grade snapshots evicted by the per-course bound"))

	m.seriesComputed = auto.NewCounter(m.counter("series_computed_total", "Weekly series computed"))
	m.seriesWeeks = auto.NewHistogram(m.histogram("series_weeks",
		"Weeks per computed series", prometheus.LinearBuckets(1, 2, 10)))
	m.probabilities = auto.NewHistogramVec(m.histogram("probability_estimates",
		"Success rates handed out", prometheus.LinearBuckets(0, 10, 11)), []string{"goal_type", "source"})

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})
	m.rateLimited = auto.NewCounterVec(m.counter("rate_limited_total",
		"Requests refused by the rate limiter"), []string{"endpoint"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Errors by component"), []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total",
		"Errors by HTTP endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Running goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_milliseconds",
		"Most recent GC pause", m.histogramBuckets))
}

// Ingest

func RecordEventIngested(kind string) { globalManager.eventsIngested.WithLabelValues(kind).Inc() }

func RecordEventDuplicate() { globalManager.eventsDup.Inc() }

func RecordEventRejected(reason string) { globalManager.eventsRejected.WithLabelValues(reason).Inc() }

func RecordEventApplied(kind string) { globalManager.eventsApplied.WithLabelValues(kind).Inc() }

func RecordApplyLatency(latencyMs float64) { globalManager.applyLatency.Observe(latencyMs) }

func RecordApplyError() { globalManager.applyErrors.Inc() }

// Queue

func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

func RecordQueueEnqueueError() { globalManager.queueEnqueueErrs.Inc() }

// Workers

func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

func UpdateWorkerActiveCount(count int) { globalManager.workerActive.Set(float64(count)) }

// Store

func UpdateStudentsTracked(count int) { globalManager.studentsTracked.Set(float64(count)) }

func UpdateCoursesTracked(count int) { globalManager.coursesTracked.Set(float64(count)) }

func RecordSamplesDropped(n int) {
	if n > 0 {
		globalManager.samplesDropped.Add(float64(n))
	}
}

// Analytics

// RecordSeriesComputed counts one computed weekly series of the given length.
func RecordSeriesComputed(weeks int) {
	globalManager.seriesComputed.Inc()
	globalManager.seriesWeeks.Observe(float64(weeks))
}

// RecordProbability observes a success rate handed to a client.
func RecordProbability(goalType, source string, value float64) {
	globalManager.probabilities.WithLabelValues(goalType, source).Observe(value)
}

// HTTP

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

func RecordRateLimited(endpoint string) { globalManager.rateLimited.WithLabelValues(endpoint).Inc() }

// Errors

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
