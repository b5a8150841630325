// Package metrics provides Prometheus metrics for the bethegolf front-end.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Assessment flow
	attemptsStarted   prometheus.Counter
	attemptsLoaded    prometheus.Counter
	attemptsCompleted prometheus.Counter
	activeAttempts    prometheus.Gauge
	loadErrors        *prometheus.CounterVec
	selections        prometheus.Counter
	advances          prometheus.Counter
	submissions       *prometheus.CounterVec
	submitLatency     prometheus.Histogram

	// Remote scoring API
	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiErrors   *prometheus.CounterVec

	// Share pipeline
	imagesGenerated *prometheus.CounterVec
	imageLatency    prometheus.Histogram
	imageErrors     prometheus.Counter
	imagesStale     prometheus.Counter
	shareActions    *prometheus.CounterVec

	// Result cache
	resultCacheHits   prometheus.Counter
	resultCacheMisses prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Render queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Render workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

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
		namespace:        "bethegolf",
		subsystem:        "frontend",
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

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	latencyMs := []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	m.attemptsStarted = m.counter("attempts_started_total", "Assessment attempts started")
	m.attemptsLoaded = m.counter("attempts_loaded_total", "Attempts whose frames loaded successfully")
	m.attemptsCompleted = m.counter("attempts_completed_total", "Attempts submitted and scored")
	m.activeAttempts = m.gauge("active_attempts", "Attempts currently held in the registry")
	m.loadErrors = m.counterVec("load_errors_total", "Frame load failures by kind", "kind")
	m.selections = m.counter("selections_total", "Option selections applied")
	m.advances = m.counter("advances_total", "Frame advances recorded")
	m.submissions = m.counterVec("submissions_total", "Submissions by outcome", "outcome")
	m.submitLatency = m.histogram("submit_latency_milliseconds", "Latency of response submission", latencyMs)

	m.apiRequests = m.counterVec("api_requests_total", "Requests to the scoring API", "endpoint", "status_code")
	m.apiLatency = m.histogramVec("api_latency_milliseconds", "Scoring API latency", "endpoint")
	m.apiErrors = m.counterVec("api_errors_total", "Scoring API failures by kind", "endpoint", "kind")

	m.imagesGenerated = m.counterVec("images_generated_total", "Share images generated", "aspect_ratio", "rasterizer")
	m.imageLatency = m.histogram("image_latency_milliseconds", "Share image rasterization latency", latencyMs)
	m.imageErrors = m.counter("image_errors_total", "Share image generation failures")
	m.imagesStale = m.counter("images_stale_total", "Generated images discarded because the aspect ratio changed")
	m.shareActions = m.counterVec("share_actions_total", "Share actions by channel and outcome", "channel", "outcome")

	m.resultCacheHits = m.counter("result_cache_hits_total", "Public result cache hits")
	m.resultCacheMisses = m.counter("result_cache_misses_total", "Public result cache misses")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.queueSize = m.gauge("render_queue_size", "Current size of the render queue")
	m.queueCapacity = m.gauge("render_queue_capacity", "Maximum capacity of the render queue")
	m.queueUtilization = m.gauge("render_queue_utilization_ratio", "Render queue utilization (size / capacity)")
	m.queueEnqueueRate = m.counter("render_queue_enqueue_total", "Render jobs enqueued")
	m.queueDequeueRate = m.counter("render_queue_dequeue_total", "Render jobs dequeued")
	m.queueEnqueueErrors = m.counter("render_queue_enqueue_errors_total", "Render jobs rejected by the queue")
	m.queueProcessingLatency = m.histogram("render_queue_processing_latency_milliseconds", "Time spent in Enqueue", m.histogramBuckets)

	m.workerCount = m.gauge("render_worker_count", "Configured render workers")
	m.workerActiveCount = m.gauge("render_worker_active_count", "Render workers currently rasterizing")
	m.workerProcessingLatency = m.histogram("render_worker_processing_latency_milliseconds", "Per-job worker latency", latencyMs)
	m.workerErrorRate = m.counter("render_worker_errors_total", "Render jobs that failed")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Assessment flow.

// RecordAttemptStarted increments the started attempts counter.
func RecordAttemptStarted() { globalManager.attemptsStarted.Inc() }

// RecordAttemptLoaded increments the loaded attempts counter.
func RecordAttemptLoaded() { globalManager.attemptsLoaded.Inc() }

// RecordAttemptCompleted increments the completed attempts counter.
func RecordAttemptCompleted() { globalManager.attemptsCompleted.Inc() }

// UpdateActiveAttempts sets the number of attempts held in memory.
func UpdateActiveAttempts(n int) { globalManager.activeAttempts.Set(float64(n)) }

// RecordLoadError counts a frame load failure ("missing" or "malformed").
func RecordLoadError(kind string) { globalManager.loadErrors.WithLabelValues(kind).Inc() }

// RecordSelection counts an applied option selection.
func RecordSelection() { globalManager.selections.Inc() }

// RecordAdvance counts a recorded frame response.
func RecordAdvance() { globalManager.advances.Inc() }

// RecordSubmission counts a submission by outcome ("ok", "error", "rejected").
func RecordSubmission(outcome string) { globalManager.submissions.WithLabelValues(outcome).Inc() }

// RecordSubmitLatency records how long a submission took in milliseconds.
func RecordSubmitLatency(ms float64) { globalManager.submitLatency.Observe(ms) }

// Scoring API.

// RecordAPIRequest counts a scoring API call.
func RecordAPIRequest(endpoint, statusCode string) {
	globalManager.apiRequests.WithLabelValues(endpoint, statusCode).Inc()
}

// RecordAPILatency records scoring API latency in milliseconds.
func RecordAPILatency(endpoint string, ms float64) {
	globalManager.apiLatency.WithLabelValues(endpoint).Observe(ms)
}

// RecordAPIError counts a scoring API failure by kind.
func RecordAPIError(endpoint, kind string) {
	globalManager.apiErrors.WithLabelValues(endpoint, kind).Inc()
}

// Share pipeline.

// RecordImageGenerated counts a generated share image.
func RecordImageGenerated(aspect, rasterizer string) {
	globalManager.imagesGenerated.WithLabelValues(aspect, rasterizer).Inc()
}

// RecordImageLatency records rasterization latency in milliseconds.
func RecordImageLatency(ms float64) { globalManager.imageLatency.Observe(ms) }

// RecordImageError counts a failed generation.
func RecordImageError() { globalManager.imageErrors.Inc() }

// RecordStaleImage counts a generation result discarded as stale.
func RecordStaleImage() { globalManager.imagesStale.Inc() }

// RecordShareAction counts a share action ("clipboard", "download", "native", "social")
// by outcome ("ok", "unsupported", "cancelled", "error").
func RecordShareAction(channel, outcome string) {
	globalManager.shareActions.WithLabelValues(channel, outcome).Inc()
}

// Result cache.

// RecordResultCacheHit counts a public result cache hit.
func RecordResultCacheHit() { globalManager.resultCacheHits.Inc() }

// RecordResultCacheMiss counts a public result cache miss.
func RecordResultCacheMiss() { globalManager.resultCacheMisses.Inc() }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Render queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Render workers.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive adjusts the number of busy workers by delta.
func AddWorkerActive(delta int) { globalManager.workerActiveCount.Add(float64(delta)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrorRate.Inc() }

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Since returns milliseconds elapsed since start, for latency recorders.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
