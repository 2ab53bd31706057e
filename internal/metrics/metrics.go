package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion metrics
var (
	ConversionJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversion_jobs_total",
			Help: "Total number of finished conversion jobs by outcome",
		},
		[]string{"outcome"}, // "success", "cancellation", "failure"
	)

	ConversionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversion_failures_total",
			Help: "Total number of failed conversion jobs by error kind",
		},
		[]string{"kind"},
	)

	ConversionJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_conversion_job_duration_seconds",
			Help:    "Conversion job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ConversionJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_conversion_jobs_in_progress",
			Help: "Number of conversion jobs currently in progress",
		},
	)

	ConversionTracksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversion_tracks_total",
			Help: "Total number of tracks wired for transfer by bucket",
		},
		[]string{"bucket"}, // "transform", "passthrough"
	)

	ConversionSamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversion_samples_total",
			Help: "Total number of samples appended to writer inputs by media kind",
		},
		[]string{"kind"},
	)

	ConversionWorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_conversion_workers_active",
			Help: "Number of sample transfer workers currently running",
		},
	)

	FormatInspectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_format_inspect_duration_seconds",
			Help:    "Time spent inspecting source tracks for their native format",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	FramesCapturedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_frames_captured_total",
			Help: "Total number of still frames captured by the frame grabber",
		},
		[]string{"status"}, // "success", "error"
	)
)

// Job registry metrics
var (
	JobsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs",
			Help: "Number of registered conversion jobs by process state",
		},
		[]string{"state"},
	)

	CatalogAssetsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_catalog_assets",
			Help: "Number of assets registered in the catalog",
		},
	)
)

// Catalog metrics
var (
	CatalogQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_catalog_queries_total",
			Help: "Total number of catalog queries",
		},
		[]string{"operation", "status"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_catalog_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_filesystem_retry_duration_seconds",
			Help:    "Total duration of filesystem operations including retries",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors encountered",
		},
		[]string{"operation"},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_admission_paused",
			Help: "1 while new conversions are held back by memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_memory_gc_pauses_total",
			Help: "Total number of times memory pressure paused admission and forced a GC",
		},
	)

	ScanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_scan_files_total",
			Help: "Container files seen by media directory scans, by result",
		},
		[]string{"result"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_scan_duration_seconds",
			Help:    "Duration of media directory scans",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ScanInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_scan_in_progress",
			Help: "1 while a media directory scan is running",
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_downloads_total",
			Help: "Conversion output downloads, by result",
		},
		[]string{"result"},
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_download_bytes_total",
			Help: "Bytes of conversion output streamed to clients",
		},
	)
)
