package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"media-converter/internal/catalog"
	"media-converter/internal/container"
	"media-converter/internal/converter"
	"media-converter/internal/frames"
	"media-converter/internal/handlers"
	"media-converter/internal/indexer"
	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/memory"
	"media-converter/internal/metrics"
	"media-converter/internal/middleware"
	"media-converter/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		startup.LogFatal("%v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "media-converter",
		Usage:   "re-encode and remux media containers",
		Version: startup.Version,
		Commands: []*cli.Command{{
			Name:   "serve",
			Usage:  "run the conversion API server (configured from the environment)",
			Action: serve,
		}, {
			Name:      "convert",
			Usage:     "convert a single container file",
			ArgsUsage: "<source>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "destination file; defaults to <source>-converted.<format> next to the source",
				},
				&cli.StringFlag{
					Name:  "format",
					Usage: "output container: mov, mp4 or m4a",
					Value: string(mediatypes.ContainerMOV),
				},
				&cli.StringFlag{
					Name:  "codec",
					Usage: "video codec: h264 or hevc",
					Value: mediatypes.CodecH264,
				},
				&cli.Int64Flag{
					Name:  "bitrate",
					Usage: "video bit rate in bits per second, 0 for automatic",
				},
				&cli.StringFlag{
					Name:  "capture-frames",
					Usage: "directory to save captured video frames to",
				},
				&cli.IntFlag{
					Name:  "frame-interval",
					Usage: "capture every Nth video frame",
					Value: 30,
				},
				&cli.Float64Flag{
					Name:  "rotate",
					Usage: "rotation applied to captured frames, in degrees",
				},
				&cli.IntFlag{
					Name:  "frame-max-size",
					Usage: "bound captured frames to this many pixels per side",
				},
				&cli.IntFlag{
					Name:  "queue-depth",
					Usage: "samples buffered per writer input",
					Value: 4,
				},
			},
			Action: convert,
		}, {
			Name:      "inspect",
			Usage:     "list the tracks of a container file",
			ArgsUsage: "<source>",
			Action:    inspect,
		}},
	}
}

func serve(c *cli.Context) error {
	startTime := time.Now()
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	metrics.InitializeMetrics()
	engine := container.New(container.WithQueueDepth(config.WriterQueueDepth))

	catalogStart := time.Now()
	cat, err := catalog.New(c.Context, config.DatabasePath, engine.OpenAsset)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	defer cat.Close()
	count, err := cat.Count(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	startup.LogCatalogInit(time.Since(catalogStart), count)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	mgr := jobs.NewManager(cat, engine, jobs.Config{
		OutputDir:      config.OutputDir,
		Format:         config.Format,
		ReadSettings:   config.ReadSettings(),
		EncodeSettings: config.EncodeSettings(),
		MaxConcurrent:  config.MaxConversions,
		FrameDir:       config.FrameDir,
		FrameInterval:  config.FrameInterval,
		RotationAngle:  config.RotationAngle,
		FrameMaxSize:   config.FrameMaxSize,
		Admission:      monitor,
	})
	startup.LogJobManagerInit(config.MaxConversions, true)

	collector := metrics.NewCollector(&statsAdapter{jobs: mgr, assets: cat}, config.StatsInterval)
	collector.Start()

	idx := indexer.New(cat, config.MediaDir, config.ScanInterval)
	idx.SetWorkers(config.ScanWorkers)
	idx.Start()

	h := handlers.New(cat, mgr, config)
	h.SetScanner(idx)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(middleware.Logger(loggingConfig)(router))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
		startup.LogShutdownInitiated("server exit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	startup.LogShutdownStep("Cancelling conversions")
	if err := mgr.Shutdown(ctx); err != nil {
		logging.Warn("Job manager shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Conversions stopped")
	}

	collector.Stop()
	monitor.Stop()

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
	return runErr
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	h.RegisterRoutes(r)
	return r
}

func newMetricsServer(port string) *http.Server {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	m.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:         ":" + port,
		Handler:      m,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// statsAdapter combines job and catalog counts for the metrics collector
type statsAdapter struct {
	jobs interface {
		GetStats() metrics.Stats
	}
	assets interface {
		Count(ctx context.Context) (int, error)
	}
}

// GetStats implements metrics.StatsProvider
func (a *statsAdapter) GetStats() metrics.Stats {
	stats := a.jobs.GetStats()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := a.assets.Count(ctx); err != nil {
		logging.Warn("Failed to count catalog assets: %v", err)
	} else {
		stats.TotalAssets = n
	}
	return stats
}

func convert(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("convert takes exactly one source file", 2)
	}
	source := c.Args().First()
	memory.ConfigureFromEnv()

	format, err := mediatypes.ParseContainerFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	codec := c.String("codec")
	if codec != mediatypes.CodecH264 && codec != mediatypes.CodecHEVC {
		return cli.Exit(fmt.Sprintf("unsupported codec %q", codec), 2)
	}

	output := c.String("output")
	if output == "" {
		output = convertedPath(source, format)
	}

	opts := []converter.Option{
		converter.WithOutputPath(output),
		converter.WithContainerFormat(format),
		converter.WithEncodeSettings(&mediatypes.EncodeSettings{Codec: codec, BitRate: c.Int64("bitrate")}),
	}

	var grabber *frames.Grabber
	if dir := c.String("capture-frames"); dir != "" {
		grabber, err = frames.New(frames.Config{
			Dir:      dir,
			Interval: c.Int("frame-interval"),
			Angle:    c.Float64("rotate"),
			MaxSize:  c.Int("frame-max-size"),
		})
		if err != nil {
			return err
		}
		opts = append(opts, converter.WithSampleProcessor(grabber.Process))
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := container.New(container.WithQueueDepth(c.Int("queue-depth")))
	conv := converter.New(container.FileSource{}, engine, source, nil, opts...)
	if err := conv.Start(ctx); err != nil {
		return err
	}

	// Wait on the background context; a signal cancels the job through ctx.
	result, err := conv.Wait(context.Background())
	if err != nil {
		return err
	}

	switch result.Outcome {
	case converter.OutcomeSuccess:
		fmt.Fprintf(c.App.Writer, "wrote %s\n", output)
		if grabber != nil {
			fmt.Fprintf(c.App.Writer, "captured %d frames\n", len(grabber.Frames()))
		}
		return nil
	case converter.OutcomeCancellation:
		return cli.Exit("conversion cancelled", 130)
	default:
		return cli.Exit(fmt.Sprintf("conversion failed: %v", result.Err), 1)
	}
}

// convertedPath places the output next to the source with a -converted
// suffix so it never overwrites the source.
func convertedPath(source string, format mediatypes.ContainerFormat) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), base+"-converted"+format.Extension())
}

func inspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("inspect takes exactly one source file", 2)
	}

	asset, err := container.FileSource{}.RequestAsset(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	tracks, err := asset.LoadTracks(c.Context)
	if err != nil {
		return err
	}

	for _, t := range tracks {
		formats := make([]string, 0, len(t.FormatDescriptions()))
		for _, f := range t.FormatDescriptions() {
			formats = append(formats, f.String())
		}
		if len(formats) == 0 {
			formats = append(formats, "-")
		}
		fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\n", t.ID(), t.Kind(), strings.Join(formats, ", "))
	}
	return nil
}
