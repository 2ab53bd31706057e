package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"success", "cancellation", "failure"} {
		ConversionJobsTotal.WithLabelValues(outcome)
	}

	for _, kind := range []string{"metadata_load_failed", "no_media_data", "reader_start_failed",
		"writer_start_failed", "sample_processing_failed", "append_rejected", "reader_failed",
		"writer_failed", "other"} {
		ConversionFailuresTotal.WithLabelValues(kind)
	}

	for _, bucket := range []string{"transform", "passthrough"} {
		ConversionTracksTotal.WithLabelValues(bucket)
	}

	for _, kind := range []string{"video", "audio", "subtitle", "text", "timecode", "metadata"} {
		ConversionSamplesTotal.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "error"} {
		FramesCapturedTotal.WithLabelValues(status)
	}

	for _, state := range []string{"idle", "processing", "cancelled", "finished"} {
		JobsByState.WithLabelValues(state)
	}

	for _, op := range []string{"register", "get", "list", "delete", "count"} {
		CatalogQueryTotal.WithLabelValues(op, "success")
		CatalogQueryTotal.WithLabelValues(op, "error")
		CatalogQueryDuration.WithLabelValues(op)
	}

	for _, result := range []string{"registered", "unchanged", "failed", "pruned"} {
		ScanFilesTotal.WithLabelValues(result)
	}

	for _, result := range []string{"success", "client_gone", "timeout", "error"} {
		DownloadsTotal.WithLabelValues(result)
	}

	for _, op := range []string{"stat", "remove"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemRetryDuration.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
