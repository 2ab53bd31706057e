package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-converter/internal/converter"
	"media-converter/internal/frames"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/workers"
)

var (
	// ErrJobNotFound is returned for unknown job identifiers.
	ErrJobNotFound = errors.New("job not found")
	// ErrOutputBusy is returned when a running job already writes the requested output.
	ErrOutputBusy = errors.New("output path is in use by another job")
	// ErrShuttingDown is returned by Submit after Shutdown.
	ErrShuttingDown = errors.New("job manager is shutting down")
)

// Config holds the defaults applied to every submitted job.
type Config struct {
	OutputDir      string
	Format         mediatypes.ContainerFormat
	ReadSettings   *mediatypes.ReadSettings
	EncodeSettings *mediatypes.EncodeSettings
	MaxConcurrent  int

	// FrameDir receives captured stills, one subdirectory per job.
	FrameDir      string
	FrameInterval int
	RotationAngle float64
	FrameMaxSize  int

	// Admission, when set, is waited on before each conversion starts.
	Admission Admission
}

// Admission holds back new conversions, e.g. under memory pressure.
type Admission interface {
	Wait(ctx context.Context) error
}

// Request describes a conversion to run.
type Request struct {
	AssetID string `json:"assetId"`
	// Output overrides the default <OutputDir>/<asset id><ext> destination.
	Output        string `json:"output,omitempty"`
	CaptureFrames bool   `json:"captureFrames,omitempty"`
}

// Status is a snapshot of a job.
type Status struct {
	ID         string         `json:"id"`
	AssetID    string         `json:"assetId"`
	OutputPath string         `json:"outputPath"`
	State      string         `json:"state"`
	Phase      string         `json:"phase"`
	Outcome    string         `json:"outcome,omitempty"`
	Error      string         `json:"error,omitempty"`
	Frames     []frames.Frame `json:"frames,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
}

type job struct {
	id        string
	conv      *converter.Converter
	grabber   *frames.Grabber
	createdAt time.Time

	mu         sync.Mutex
	finishedAt time.Time
}

func (j *job) status() Status {
	s := Status{
		ID:         j.id,
		AssetID:    j.conv.AssetID(),
		OutputPath: j.conv.OutputPath(),
		State:      j.conv.State().String(),
		Phase:      j.conv.Phase().String(),
		CreatedAt:  j.createdAt,
	}
	if r, ok := j.conv.Result(); ok {
		s.Outcome = r.Outcome.String()
		if r.Err != nil {
			s.Error = r.Err.Error()
		}
		j.mu.Lock()
		finished := j.finishedAt
		j.mu.Unlock()
		if !finished.IsZero() {
			s.FinishedAt = &finished
		}
	}
	if j.grabber != nil {
		s.Frames = j.grabber.Frames()
	}
	return s
}

// Manager runs conversion jobs.
type Manager struct {
	source     mediatypes.AssetSource
	capability mediatypes.Capability
	cfg        Config
	limiter    *workers.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	jobs     map[string]*job
	order    []string
	shutdown bool
}

// NewManager creates a Manager. MaxConcurrent below 1 is sized from the
// available CPUs.
func NewManager(source mediatypes.AssetSource, capability mediatypes.Capability, cfg Config) *Manager {
	if cfg.Format == "" {
		cfg.Format = mediatypes.ContainerMOV
	}
	limit := cfg.MaxConcurrent
	if limit < 1 {
		limit = workers.ForCPU(4)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logging.Info("Job manager: up to %d concurrent conversions, output to %s", limit, cfg.OutputDir)

	return &Manager{
		source:     source,
		capability: capability,
		cfg:        cfg,
		limiter:    workers.NewLimiter(limit),
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]*job),
	}
}

// Submit registers a job and runs it once a concurrency slot is free.
func (m *Manager) Submit(req Request) (Status, error) {
	if req.AssetID == "" {
		return Status{}, errors.New("asset id is required")
	}

	id := uuid.NewString()
	output := req.Output
	if output == "" {
		output = converter.DefaultOutputPath(m.cfg.OutputDir, req.AssetID, m.cfg.Format)
	}

	opts := []converter.Option{
		converter.WithJobID(id),
		converter.WithOutputPath(output),
		converter.WithContainerFormat(m.cfg.Format),
	}
	if m.cfg.ReadSettings != nil {
		opts = append(opts, converter.WithReadSettings(m.cfg.ReadSettings))
	}
	if m.cfg.EncodeSettings != nil {
		opts = append(opts, converter.WithEncodeSettings(m.cfg.EncodeSettings))
	}

	var grabber *frames.Grabber
	frameDir := filepath.Join(m.cfg.FrameDir, id)
	if req.CaptureFrames {
		var err error
		grabber, err = frames.New(frames.Config{
			Dir:      frameDir,
			Interval: m.cfg.FrameInterval,
			Angle:    m.cfg.RotationAngle,
			MaxSize:  m.cfg.FrameMaxSize,
		})
		if err != nil {
			return Status{}, fmt.Errorf("frame grabber: %w", err)
		}
		opts = append(opts, converter.WithSampleProcessor(grabber.Process))
	}

	j := &job{id: id, grabber: grabber, createdAt: time.Now()}
	j.conv = converter.New(m.source, m.capability, req.AssetID, func(bool, mediatypes.Asset, error) {
		j.mu.Lock()
		j.finishedAt = time.Now()
		j.mu.Unlock()
	}, opts...)

	reject := func(err error) (Status, error) {
		m.mu.Unlock()
		if grabber != nil {
			if rmErr := os.RemoveAll(frameDir); rmErr != nil {
				logging.Warn("Failed to remove frame directory %s: %v", frameDir, rmErr)
			}
		}
		return Status{}, err
	}

	m.mu.Lock()
	if m.shutdown {
		return reject(ErrShuttingDown)
	}
	for _, other := range m.jobs {
		if other.conv.OutputPath() == output && !other.conv.Finished() {
			return reject(fmt.Errorf("%s: %w", output, ErrOutputBusy))
		}
	}
	m.jobs[id] = j
	m.order = append(m.order, id)
	m.wg.Add(1)
	m.mu.Unlock()

	logging.Info("Submitted job %s for asset %s", id, req.AssetID)
	go m.run(j)
	return j.status(), nil
}

func (m *Manager) run(j *job) {
	defer m.wg.Done()

	if err := m.limiter.Acquire(m.ctx); err != nil {
		j.conv.Cancel()
	} else {
		defer m.limiter.Release()
		if m.cfg.Admission != nil {
			if err := m.cfg.Admission.Wait(m.ctx); err != nil {
				logging.Warn("Job %s not admitted: %v", j.id, err)
				j.conv.Cancel()
			}
		}
	}

	if err := j.conv.Start(m.ctx); err != nil {
		logging.Error("Job %s failed to start: %v", j.id, err)
		return
	}
	<-j.conv.Done()
}

// Get returns the status of a job.
func (m *Manager) Get(id string) (Status, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Status{}, ErrJobNotFound
	}
	return j.status(), nil
}

// List returns every job in submission order.
func (m *Manager) List() []Status {
	m.mu.RLock()
	jobs := make([]*job, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, m.jobs[id])
	}
	m.mu.RUnlock()

	out := make([]Status, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.status())
	}
	return out
}

// Cancel requests cancellation of a job. Cancelling a finished job is a no-op.
func (m *Manager) Cancel(id string) (Status, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Status{}, ErrJobNotFound
	}
	if !j.conv.Finished() {
		j.conv.Cancel()
	}
	return j.status(), nil
}

// Wait blocks until the job finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Status, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Status{}, ErrJobNotFound
	}
	select {
	case <-j.conv.Done():
		return j.status(), nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// GetStats counts jobs by process state.
func (m *Manager) GetStats() metrics.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, j := range m.jobs {
		counts[j.conv.State().String()]++
	}
	return metrics.Stats{JobsByState: counts}
}

// Shutdown cancels every unfinished job and waits for them to report.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("Job manager stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}
