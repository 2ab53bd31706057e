// Package metrics provides Prometheus instrumentation for the media converter.
//
// All metrics are prefixed with "media_converter_" to avoid naming collisions
// with other applications.
//
// # Metric Categories
//
// ## Conversion Metrics
//
// Track conversion jobs end to end:
//   - ConversionJobsTotal: Counter of finished jobs by outcome
//     (success/cancellation/failure)
//   - ConversionFailuresTotal: Counter of failed jobs by error kind
//   - ConversionJobDuration: Histogram of job duration
//   - ConversionJobsInProgress: Gauge of jobs that have started but not finished
//   - ConversionTracksTotal: Counter of tracks wired by bucket
//     (transform/passthrough)
//   - ConversionSamplesTotal: Counter of samples appended by media kind
//   - ConversionWorkersActive: Gauge of running sample transfer workers
//   - FormatInspectDuration: Histogram of source format inspection time
//   - FramesCapturedTotal: Counter of stills written by the frame grabber
//
// ## Job Registry Metrics
//
// Refreshed periodically by the Collector:
//   - JobsByState: Gauge of registered jobs by process state
//   - CatalogAssetsTotal: Gauge of assets registered in the catalog
//
// ## Catalog Metrics
//   - CatalogQueryTotal: Counter of catalog queries by operation and status
//   - CatalogQueryDuration: Histogram of catalog query duration by operation
//
// ## Filesystem Metrics
//
// Retry behavior for destination path handling on network filesystems:
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures
//   - FilesystemRetryDuration, FilesystemStaleErrors
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// # Usage
//
//	metrics.ConversionJobsTotal.WithLabelValues("success").Inc()
//	timer := prometheus.NewTimer(metrics.FormatInspectDuration)
//	defer timer.ObserveDuration()
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics
