// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables with envconfig. [Load]
// parses and validates; [LoadConfig] also prints the banner and prepares the
// output and database directories. Supported variables:
//
//   - MEDIA_DIR: Directory assets are registered from (default: /media)
//   - OUTPUT_DIR: Directory converted files are written to (default: /output)
//   - DATABASE_DIR: Directory holding catalog.db (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - OUTPUT_CONTAINER: mov, mp4 or m4a (default: mov)
//   - VIDEO_CODEC: h264 or hevc (default: h264)
//   - VIDEO_BITRATE: Target bit rate in bits per second, 0 for automatic
//   - PIXEL_FORMAT: 32ARGB or 32BGRA (default: 32ARGB)
//   - ROTATION_ANGLE: Rotation applied to captured frames in degrees
//   - FRAME_INTERVAL: Capture every Nth video frame (default: 30)
//   - FRAME_MAX_SIZE: Bound captured frames to this many pixels per side
//   - MAX_CONVERSIONS: Concurrent conversions, 0 for automatic
//   - WRITER_QUEUE_DEPTH: Samples buffered per writer input (default: 4)
//   - STATS_INTERVAL: Gauge refresh interval (default: 30s)
//   - SCAN_INTERVAL: Media directory rescan interval, 0 disables (default: 30m)
//   - SCAN_WORKERS: Concurrent registrations per scan (default: 3)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//
//	startup.LogCatalogInit(time.Since(t0), count)
//	startup.LogServerStarted(startup.ServerConfig{
//	    Port:            config.Port,
//	    MetricsPort:     config.MetricsPort,
//	    MetricsEnabled:  config.MetricsEnabled,
//	    StartupDuration: time.Since(startTime),
//	})
package startup
