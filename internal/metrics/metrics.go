package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortgen_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Job Metrics
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_jobs_created_total",
			Help: "Total number of generation jobs created",
		},
		[]string{"profile"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_jobs_completed_total",
			Help: "Total number of finished generation jobs by final status",
		},
		[]string{"status"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortgen_jobs_in_progress",
			Help: "Number of jobs currently being processed",
		},
	)

	JobsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortgen_jobs_queue_depth",
			Help: "Number of jobs waiting in queue",
		},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortgen_job_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"profile"},
	)

	// Pipeline Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortgen_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"stage"},
	)

	ProviderFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_provider_fallbacks_total",
			Help: "Provider failures that made a fallback chain move on",
		},
		[]string{"component", "provider"},
	)

	BackupUsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_backup_used_total",
			Help: "Times a fallback chain ended on its backup value",
		},
		[]string{"component"},
	)

	InvalidInputSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_invalid_input_skips_total",
			Help: "Topics or languages skipped because the timeline rejected their input",
		},
		[]string{"stage"},
	)

	VideosGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_videos_generated_total",
			Help: "Rendered videos by language and status",
		},
		[]string{"language", "status"},
	)

	NarrationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortgen_narration_seconds",
			Help:    "Measured narration length before padding",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 75, 90, 120},
		},
		[]string{"language"},
	)

	PaddingSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shortgen_padding_seconds",
			Help:    "Trailing silence appended to reach the target length",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	SlotDriftSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shortgen_slot_drift_seconds",
			Help:    "Visual slots overshoot above the narration length",
			Buckets: []float64{0, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortgen_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortgen_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortgen_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordJobCreated records a job creation
func RecordJobCreated(profile string) {
	JobsCreatedTotal.WithLabelValues(profile).Inc()
}

// RecordJobCompleted records a job completion
func RecordJobCompleted(status, profile string, duration float64) {
	JobsCompletedTotal.WithLabelValues(status).Inc()
	JobDuration.WithLabelValues(profile).Observe(duration)
}

// UpdateJobMetrics updates current job metrics
func UpdateJobMetrics(inProgress, queueDepth int) {
	JobsInProgress.Set(float64(inProgress))
	JobsQueueDepth.Set(float64(queueDepth))
}

// RecordStage records how long a pipeline stage took
func RecordStage(stage string, duration float64) {
	StageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordProviderFallback records a failed provider inside a fallback chain
func RecordProviderFallback(component, provider string) {
	ProviderFallbacksTotal.WithLabelValues(component, provider).Inc()
}

// RecordBackupUsed records a chain that ended on its backup value
func RecordBackupUsed(component string) {
	BackupUsedTotal.WithLabelValues(component).Inc()
}

// RecordInvalidInput records a skip caused by timeline.ErrInvalidInput
func RecordInvalidInput(stage string) {
	InvalidInputSkipsTotal.WithLabelValues(stage).Inc()
}

// RecordVideo records a rendered (or failed) video
func RecordVideo(language, status string) {
	VideosGeneratedTotal.WithLabelValues(language, status).Inc()
}

// RecordTimeline records the timing decisions for one video
func RecordTimeline(language string, narration, padding, drift float64) {
	NarrationSeconds.WithLabelValues(language).Observe(narration)
	PaddingSeconds.Observe(padding)
	SlotDriftSeconds.Observe(drift)
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
