package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the football sync backend

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_api_calls_total",
			Help: "Total number of api-football calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "football_api_call_duration_seconds",
			Help:    "Duration of api-football calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Rate limiter metrics
	APICallsToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "football_api_calls_today",
			Help: "Calls recorded against the current UTC day's quota",
		},
	)

	APICallsMinuteWindow = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "football_api_calls_minute_window",
			Help: "Calls recorded in the trailing 60 second window",
		},
	)

	RateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "football_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the per-minute window to free a slot",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60},
		},
	)

	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "football_rate_limit_rejections_total",
			Help: "Calls refused because the daily quota was exhausted",
		},
	)

	// Database metrics
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "football_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "football_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "football_cache_hits_total",
			Help: "Total number of dashboard cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "football_cache_misses_total",
			Help: "Total number of dashboard cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "football_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "football_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"type"},
	)

	SyncedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_synced_records_total",
			Help: "Records written by sync operations",
		},
		[]string{"type", "action"},
	)

	// Evaluation metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_prediction_evaluations_total",
			Help: "Prediction evaluations by status",
		},
		[]string{"status"},
	)

	// Admin HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_http_requests_total",
			Help: "Admin HTTP requests",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "football_http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Scheduler metrics
	SchedulerJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_scheduler_job_runs_total",
			Help: "Scheduled job runs by outcome",
		},
		[]string{"job", "status"},
	)

	LastSuccessfulSync = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "football_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
		[]string{"type"},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// UpdateRateLimitStats publishes the limiter counters
func UpdateRateLimitStats(today, minute int) {
	APICallsToday.Set(float64(today))
	APICallsMinuteWindow.Set(float64(minute))
}

// RecordRateLimitWait records time spent blocked on the minute window
func RecordRateLimitWait(seconds float64) {
	RateLimitWaitSeconds.Observe(seconds)
}

// RecordRateLimitRejection records a call refused by the daily quota
func RecordRateLimitRejection() {
	RateLimitRejectionsTotal.Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.WithLabelValues(syncType).SetToCurrentTime()
	}
}

// RecordSyncedRecords adds n records with the given action (created, updated, ...)
func RecordSyncedRecords(syncType, action string, n int) {
	if n > 0 {
		SyncedRecordsTotal.WithLabelValues(syncType, action).Add(float64(n))
	}
}

// RecordEvaluation records one prediction evaluation
func RecordEvaluation(status string) {
	EvaluationsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one admin request
func RecordHTTPRequest(route, method, code string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(route, method, code).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordJobRun records a scheduler job run
func RecordJobRun(job, status string) {
	SchedulerJobRuns.WithLabelValues(job, status).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
