// Package metrics provides Prometheus metrics for the scorebot prediction service.
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

// Label values shared by several metrics.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Manager manages all Prometheus metrics for the scorebot service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Prediction Metrics
	predictions        *prometheus.CounterVec
	predictionLatency  *prometheus.HistogramVec
	batchSize          prometheus.Histogram
	resultCacheHits    prometheus.Counter
	resultCacheMisses  prometheus.Counter
	resultCacheErrors  prometheus.Counter
	defaultFilledCells prometheus.Counter

	// Model Registry Metrics
	modelLoads        *prometheus.CounterVec
	modelLoadDuration *prometheus.HistogramVec
	modelsLoaded      prometheus.Gauge

	// Stats Repository Metrics
	statsRows          prometheus.Gauge
	statsTeams         prometheus.Gauge
	statsLookups       *prometheus.CounterVec
	statsLookupLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
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
		namespace:        "scorebot",
		subsystem:        "predictor",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
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
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("predictions_total"),
		Help:        "Total number of predictions by model type and outcome",
		ConstLabels: labels,
	}, []string{"model_type", "outcome"})

	m.predictionLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_latency_milliseconds"),
		Help:        "End-to-end prediction latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"model_type"})

	m.batchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("batch_size"),
		Help:        "Number of matchups per batch prediction request",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 8),
		ConstLabels: labels,
	})

	m.resultCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("result_cache_hits_total"),
		Help:        "Predictions served from the result cache",
		ConstLabels: labels,
	})

	m.resultCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("result_cache_misses_total"),
		Help:        "Predictions not found in the result cache",
		ConstLabels: labels,
	})

	m.resultCacheErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("result_cache_errors_total"),
		Help:        "Result cache backend failures (predictions fall through to inference)",
		ConstLabels: labels,
	})

	m.defaultFilledCells = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("feature_default_filled_total"),
		Help:        "Schema columns filled with the missing-feature default",
		ConstLabels: labels,
	})

	m.modelLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_loads_total"),
		Help:        "Model pair artifact loads by model type and result",
		ConstLabels: labels,
	}, []string{"model_type", "result"})

	m.modelLoadDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_load_duration_milliseconds"),
		Help:        "Model pair artifact load duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"model_type"})

	m.modelsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("models_loaded"),
		Help:        "Number of model types currently cached",
		ConstLabels: labels,
	})

	m.statsRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stats_rows"),
		Help:        "Rows in the team-season statistics table",
		ConstLabels: labels,
	})

	m.statsTeams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stats_teams"),
		Help:        "Distinct teams in the statistics table",
		ConstLabels: labels,
	})

	m.statsLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stats_lookups_total"),
		Help:        "Team aggregate lookups by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.statsLookupLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stats_lookup_latency_milliseconds"),
		Help:        "Team aggregate lookup latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and error type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by HTTP endpoint, method and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("error_latency_milliseconds"),
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_bytes"),
		Help:        "Allocated heap memory in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutines"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_milliseconds"),
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})
}

// Prediction Metrics Functions.

// RecordPrediction counts a prediction by model type and outcome (ok, validation, not_found, model_load, internal).
func RecordPrediction(modelType, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.predictions.WithLabelValues(modelType, outcome).Inc()
}

// RecordPredictionLatency records end-to-end prediction latency.
func RecordPredictionLatency(modelType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.predictionLatency.WithLabelValues(modelType).Observe(latencyMs)
}

// RecordBatchSize records the size of a batch prediction request.
func RecordBatchSize(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.batchSize.Observe(float64(n))
}

// RecordResultCache counts a result cache hit or miss.
func RecordResultCache(hit bool) {
	if !globalManager.enabled {
		return
	}
	if hit {
		globalManager.resultCacheHits.Inc()
		return
	}
	globalManager.resultCacheMisses.Inc()
}

// RecordResultCacheError counts a result cache backend failure.
func RecordResultCacheError() {
	if !globalManager.enabled {
		return
	}
	globalManager.resultCacheErrors.Inc()
}

// RecordDefaultFilled counts schema columns filled with the missing-feature default.
func RecordDefaultFilled(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.defaultFilledCells.Add(float64(n))
}

// Model Registry Metrics Functions.

// RecordModelLoad records one model pair load attempt.
func RecordModelLoad(modelType string, ok bool, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	result := resultOK
	if !ok {
		result = resultError
	}
	globalManager.modelLoads.WithLabelValues(modelType, result).Inc()
	globalManager.modelLoadDuration.WithLabelValues(modelType).Observe(durationMs)
}

// UpdateModelsLoaded sets the number of cached model types.
func UpdateModelsLoaded(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.modelsLoaded.Set(float64(n))
}

// Stats Repository Metrics Functions.

// UpdateStatsTable sets the statistics table size gauges.
func UpdateStatsTable(rows, teams int) {
	if !globalManager.enabled {
		return
	}
	globalManager.statsRows.Set(float64(rows))
	globalManager.statsTeams.Set(float64(teams))
}

// RecordStatsLookup counts a team aggregate lookup.
func RecordStatsLookup(found bool) {
	if !globalManager.enabled {
		return
	}
	result := "found"
	if !found {
		result = "not_found"
	}
	globalManager.statsLookups.WithLabelValues(result).Inc()
}

// RecordStatsLookupLatency records team aggregate lookup latency.
func RecordStatsLookupLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.statsLookupLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

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

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// SetEnabled toggles recording of the prediction-path metrics.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// RefreshInterval is how often system gauges should be sampled.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
