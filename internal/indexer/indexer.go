package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-converter/internal/catalog"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// DefaultWorkers is the registration parallelism, kept low for network filesystems.
const DefaultWorkers = 3

// ErrScanInProgress is returned by Scan while another scan is running.
var ErrScanInProgress = errors.New("scan already in progress")

// Catalog is the part of the asset catalog the indexer maintains.
type Catalog interface {
	Register(ctx context.Context, path string) (*catalog.Asset, error)
	List(ctx context.Context) ([]catalog.Asset, error)
	Delete(ctx context.Context, id string) error
}

// Result summarizes one scan.
type Result struct {
	Registered int           `json:"registered"`
	Unchanged  int           `json:"unchanged"`
	Failed     int           `json:"failed"`
	Pruned     int           `json:"pruned"`
	Duration   time.Duration `json:"duration"`
}

// Status is a snapshot of the indexer.
type Status struct {
	Scanning   bool      `json:"scanning"`
	LastScan   time.Time `json:"lastScan,omitempty"`
	LastResult Result    `json:"lastResult"`
	LastError  string    `json:"lastError,omitempty"`
}

// Indexer scans the media directory into the catalog.
type Indexer struct {
	catalog  Catalog
	mediaDir string
	interval time.Duration
	workers  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	scanning   bool
	lastScan   time.Time
	lastResult Result
	lastErr    error
}

// New creates an Indexer. An interval of zero disables periodic scans.
func New(cat Catalog, mediaDir string, interval time.Duration) *Indexer {
	if abs, err := filepath.Abs(mediaDir); err == nil {
		mediaDir = abs
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		catalog:  cat,
		mediaDir: mediaDir,
		interval: interval,
		workers:  DefaultWorkers,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetWorkers sets the registration parallelism. Values below 1 are ignored.
func (idx *Indexer) SetWorkers(n int) {
	if n > 0 {
		idx.workers = n
	}
}

// Start runs an initial scan in the background and schedules periodic scans.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()

		logging.Info("Starting initial scan of %s", idx.mediaDir)
		idx.runScan()

		if idx.interval <= 0 {
			return
		}
		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logging.Debug("Periodic scan triggered")
				idx.runScan()
			case <-idx.ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels any running scan and waits for background scans to exit.
func (idx *Indexer) Stop() {
	idx.cancel()
	idx.wg.Wait()
}

// TriggerScan starts a scan in the background. It reports false when a scan
// is already running.
func (idx *Indexer) TriggerScan() bool {
	if !idx.tryStart() {
		return false
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.scanStarted(idx.ctx)
	}()
	return true
}

func (idx *Indexer) runScan() {
	if _, err := idx.Scan(idx.ctx); err != nil && !errors.Is(err, ErrScanInProgress) {
		logging.Error("Scan failed: %v", err)
	}
}

// Scan walks the media directory once and returns what changed.
func (idx *Indexer) Scan(ctx context.Context) (Result, error) {
	if !idx.tryStart() {
		return Result{}, ErrScanInProgress
	}
	return idx.scanStarted(ctx)
}

// Status returns the current indexer status.
func (idx *Indexer) Status() Status {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	s := Status{Scanning: idx.scanning, LastScan: idx.lastScan, LastResult: idx.lastResult}
	if idx.lastErr != nil {
		s.LastError = idx.lastErr.Error()
	}
	return s
}

func (idx *Indexer) tryStart() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.scanning {
		return false
	}
	idx.scanning = true
	metrics.ScanInProgress.Set(1)
	return true
}

// scanStarted performs a scan already marked as running.
func (idx *Indexer) scanStarted(ctx context.Context) (Result, error) {
	start := time.Now()
	result, err := idx.scan(ctx)
	result.Duration = time.Since(start)

	metrics.ScanDuration.Observe(result.Duration.Seconds())
	metrics.ScanInProgress.Set(0)

	idx.mu.Lock()
	idx.scanning = false
	idx.lastScan = start
	idx.lastResult = result
	idx.lastErr = err
	idx.mu.Unlock()

	if err == nil {
		logging.Info("Scan complete in %v: %d registered, %d unchanged, %d failed, %d pruned",
			result.Duration.Round(time.Millisecond), result.Registered, result.Unchanged, result.Failed, result.Pruned)
	}
	return result, err
}

type candidate struct {
	path string
	info fs.FileInfo
}

func (idx *Indexer) scan(ctx context.Context) (Result, error) {
	known, err := idx.catalog.List(ctx)
	if err != nil {
		return Result{}, err
	}
	byPath := make(map[string]catalog.Asset, len(known))
	for _, a := range known {
		byPath[a.Path] = a
	}

	var registered, unchanged, failed atomic.Int64
	jobs := make(chan candidate)

	var wg sync.WaitGroup
	for i := 0; i < idx.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if a, ok := byPath[c.path]; ok && upToDate(a, c.info) {
					unchanged.Add(1)
					continue
				}
				if _, err := idx.catalog.Register(ctx, c.path); err != nil {
					logging.Warn("Failed to register %s: %v", c.path, err)
					failed.Add(1)
					continue
				}
				registered.Add(1)
			}
		}()
	}

	seen := make(map[string]bool)
	walkErr := filepath.WalkDir(idx.mediaDir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == idx.mediaDir {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}
		if path != idx.mediaDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !mediatypes.IsContainerFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			return nil
		}
		seen[path] = true

		select {
		case jobs <- candidate{path: path, info: info}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(jobs)
	wg.Wait()

	result := Result{
		Registered: int(registered.Load()),
		Unchanged:  int(unchanged.Load()),
		Failed:     int(failed.Load()),
	}
	metrics.ScanFilesTotal.WithLabelValues("registered").Add(float64(result.Registered))
	metrics.ScanFilesTotal.WithLabelValues("unchanged").Add(float64(result.Unchanged))
	metrics.ScanFilesTotal.WithLabelValues("failed").Add(float64(result.Failed))

	if walkErr != nil {
		return result, walkErr
	}

	result.Pruned = idx.prune(ctx, known, seen)
	metrics.ScanFilesTotal.WithLabelValues("pruned").Add(float64(result.Pruned))
	return result, nil
}

// prune removes catalog entries under the media directory whose files are gone.
// Assets registered from elsewhere are left alone.
func (idx *Indexer) prune(ctx context.Context, known []catalog.Asset, seen map[string]bool) int {
	pruned := 0
	for _, a := range known {
		if seen[a.Path] || !within(idx.mediaDir, a.Path) {
			continue
		}
		if _, err := os.Stat(a.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := idx.catalog.Delete(ctx, a.ID); err != nil {
			logging.Warn("Failed to prune %s: %v", a.Path, err)
			continue
		}
		pruned++
	}
	if pruned > 0 {
		logging.Info("Removed %d missing assets from catalog", pruned)
	}
	return pruned
}

// upToDate reports whether a registered asset still matches the file on disk.
func upToDate(a catalog.Asset, info fs.FileInfo) bool {
	return a.Size == info.Size() && !info.ModTime().Truncate(time.Second).After(a.UpdatedAt)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
