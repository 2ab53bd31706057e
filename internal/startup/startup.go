package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	MediaDir        string `envconfig:"MEDIA_DIR" default:"/media"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"/output"`
	DatabaseDir     string `envconfig:"DATABASE_DIR" default:"/database"`
	Port            string `envconfig:"PORT" default:"8080"`
	MetricsPort     string `envconfig:"METRICS_PORT" default:"9090"`
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"true"`
	LogHealthChecks bool   `envconfig:"LOG_HEALTH_CHECKS" default:"true"`

	OutputContainer  string  `envconfig:"OUTPUT_CONTAINER" default:"mov"`
	VideoCodec       string  `envconfig:"VIDEO_CODEC" default:"h264"`
	VideoBitRate     int64   `envconfig:"VIDEO_BITRATE" default:"0"`
	PixelFormat      string  `envconfig:"PIXEL_FORMAT" default:"32ARGB"`
	RotationAngle    float64 `envconfig:"ROTATION_ANGLE" default:"0"`
	FrameInterval    int     `envconfig:"FRAME_INTERVAL" default:"30"`
	FrameMaxSize     int     `envconfig:"FRAME_MAX_SIZE" default:"0"`
	MaxConversions   int     `envconfig:"MAX_CONVERSIONS" default:"0"`
	WriterQueueDepth int     `envconfig:"WRITER_QUEUE_DEPTH" default:"4"`

	StatsInterval time.Duration `envconfig:"STATS_INTERVAL" default:"30s"`
	ScanInterval  time.Duration `envconfig:"SCAN_INTERVAL" default:"30m"`
	ScanWorkers   int           `envconfig:"SCAN_WORKERS" default:"3"`

	// Derived
	Format       mediatypes.ContainerFormat `ignored:"true"`
	DatabasePath string                     `ignored:"true"`
	FrameDir     string                     `ignored:"true"`
}

// ReadSettings returns the decode settings for transformable tracks.
func (c *Config) ReadSettings() *mediatypes.ReadSettings {
	return &mediatypes.ReadSettings{PixelFormat: c.PixelFormat}
}

// EncodeSettings returns the encode settings for transformable tracks.
func (c *Config) EncodeSettings() *mediatypes.EncodeSettings {
	return &mediatypes.EncodeSettings{Codec: c.VideoCodec, BitRate: c.VideoBitRate}
}

// Load parses and validates the environment without touching the filesystem.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	for _, p := range []*string{&c.MediaDir, &c.OutputDir, &c.DatabaseDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", *p, err)
		}
		*p = abs
	}
	if nested(c.MediaDir, c.OutputDir) || nested(c.OutputDir, c.MediaDir) {
		return nil, fmt.Errorf("OUTPUT_DIR %s must not overlap MEDIA_DIR %s", c.OutputDir, c.MediaDir)
	}
	c.DatabasePath = filepath.Join(c.DatabaseDir, "catalog.db")
	c.FrameDir = filepath.Join(c.OutputDir, "frames")

	return &c, nil
}

// nested reports whether path is root or lies inside it.
func nested(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (c *Config) validate() error {
	format, err := mediatypes.ParseContainerFormat(c.OutputContainer)
	if err != nil {
		return fmt.Errorf("OUTPUT_CONTAINER: %w", err)
	}
	c.Format = format

	switch c.VideoCodec {
	case mediatypes.CodecH264, mediatypes.CodecHEVC:
	default:
		return fmt.Errorf("VIDEO_CODEC: unsupported codec %q", c.VideoCodec)
	}

	switch c.PixelFormat {
	case mediatypes.PixelFormatARGB32, mediatypes.PixelFormatBGRA32:
	default:
		return fmt.Errorf("PIXEL_FORMAT: unsupported pixel format %q", c.PixelFormat)
	}

	if c.FrameInterval < 1 {
		return fmt.Errorf("FRAME_INTERVAL must be at least 1, got %d", c.FrameInterval)
	}
	if c.FrameMaxSize < 0 {
		return fmt.Errorf("FRAME_MAX_SIZE must not be negative, got %d", c.FrameMaxSize)
	}
	if c.MaxConversions < 0 {
		return fmt.Errorf("MAX_CONVERSIONS must not be negative, got %d", c.MaxConversions)
	}
	if c.WriterQueueDepth < 1 {
		return fmt.Errorf("WRITER_QUEUE_DEPTH must be at least 1, got %d", c.WriterQueueDepth)
	}
	if c.ScanInterval < 0 {
		return fmt.Errorf("SCAN_INTERVAL must not be negative, got %s", c.ScanInterval)
	}
	if c.ScanWorkers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1, got %d", c.ScanWorkers)
	}
	if c.VideoBitRate < 0 {
		return fmt.Errorf("VIDEO_BITRATE must not be negative, got %d", c.VideoBitRate)
	}
	return nil
}

// LoadConfig loads configuration from environment variables, prepares the
// output and database directories and logs the result.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := Load()
	if err != nil {
		return nil, err
	}

	logging.Info("  Media directory:     %s", config.MediaDir)
	logging.Info("  Output directory:    %s", config.OutputDir)
	logging.Info("  Database directory:  %s", config.DatabaseDir)
	logging.Info("  Database file:       %s", config.DatabasePath)
	logging.Info("  Server port:         %s", config.Port)
	logging.Info("  Metrics port:        %s", config.MetricsPort)
	logging.Info("  Metrics enabled:     %v", config.MetricsEnabled)
	logging.Info("  Output container:    %s", config.Format)
	logging.Info("  Video codec:         %s", config.VideoCodec)
	logging.Info("  Pixel format:        %s", config.PixelFormat)
	logging.Info("  Rotation angle:      %v", config.RotationAngle)
	logging.Info("  Frame interval:      %d", config.FrameInterval)
	if config.MaxConversions > 0 {
		logging.Info("  Max conversions:     %d", config.MaxConversions)
	} else {
		logging.Info("  Max conversions:     auto")
	}
	logging.Info("  Writer queue depth:  %d", config.WriterQueueDepth)
	if config.ScanInterval > 0 {
		logging.Info("  Scan interval:       %s (%d workers)", config.ScanInterval, config.ScanWorkers)
	} else {
		logging.Info("  Scan interval:       disabled")
	}
	logging.Info("  Log level:           %s", logging.GetLevel())
	logging.Info("")

	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := ensureDirectory(config.MediaDir, "media"); err != nil {
		logging.Warn("  [WARN] Media directory issue: %v", err)
	} else {
		logging.Info("  [OK] Media directory ready")
	}

	if err := PrepareDirectory(config.DatabaseDir, "database"); err != nil {
		return nil, err
	}
	logging.Info("  [OK] Database directory ready")

	if err := PrepareDirectory(config.OutputDir, "output"); err != nil {
		return nil, err
	}
	logging.Info("  [OK] Output directory ready")

	logging.Info("")

	return config, nil
}

// PrepareDirectory creates a directory if needed and checks it is writable.
func PrepareDirectory(path, name string) error {
	if err := ensureDirectory(path, name); err != nil {
		return fmt.Errorf("%s directory %s: %w", name, path, err)
	}
	if err := testWriteAccess(path); err != nil {
		return fmt.Errorf("%s directory %s is not writable: %w", name, path, err)
	}
	return nil
}

// LogCatalogInit logs catalog initialization timing
func LogCatalogInit(duration time.Duration, assets int) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CATALOG")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Catalog opened in %v (%d assets)", duration, assets)
	logging.Info("")
}

// LogJobManagerInit logs the conversion job manager configuration
func LogJobManagerInit(maxConcurrent int, captureFrames bool) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONVERSION JOBS")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Concurrent conversions: %d", maxConcurrent)
	logging.Info("  Frame capture:          %s", enabledString(captureFrames))
	logging.Info("")
}

func enabledString(enabled bool) string {
	if enabled {
		return "available"
	}
	return "disabled"
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		// Sort group keys
		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		// Print routes by group
		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	// Remove leading slash
	path = strings.TrimPrefix(path, "/")

	// Get first segment
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
                     _ _
  _ __ ___   ___  __| (_) __ _    ___ ___  _ ____   __
 | '_ ' _ \ / _ \/ _' | |/ _' |  / __/ _ \| '_ \ \ / /
 | | | | | |  __/ (_| | | (_| | | (_| (_) | | | \ V /
 |_| |_| |_|\___|\__,_|_|\__,_|  \___\___/|_| |_|\_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "media" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			supported := 0
			for _, e := range entries {
				if !e.IsDir() && mediatypes.IsContainerFile(e.Name()) {
					supported++
				}
			}
			logging.Debug("    Contents: %d entries, %d convertible (top level)", len(entries), supported)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
