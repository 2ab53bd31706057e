package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// Converter runs one conversion job. A Converter is single use.
type Converter struct {
	id         string
	assetID    string
	source     mediatypes.AssetSource
	capability mediatypes.Capability
	completion Completion

	outputPath     string
	format         mediatypes.ContainerFormat
	readSettings   *mediatypes.ReadSettings
	encodeSettings *mediatypes.EncodeSettings
	processor      SampleProcessor
	retry          filesystem.RetryConfig
	log            logging.Logger

	started   atomic.Bool
	cancelled atomic.Bool
	wake      chan struct{}
	wakeOnce  sync.Once

	errMu       sync.Mutex
	transferErr error

	mu        sync.Mutex
	phase     Phase
	reading   bool
	result    *Result
	startedAt time.Time

	finishOnce sync.Once
	done       chan struct{}
}

// Option configures a Converter.
type Option func(*Converter)

// WithJobID sets the job identifier used in logs and errors.
func WithJobID(id string) Option {
	return func(c *Converter) {
		if id != "" {
			c.id = id
		}
	}
}

// WithOutputPath sets the destination file. An existing file there is
// replaced.
func WithOutputPath(path string) Option {
	return func(c *Converter) {
		c.outputPath = path
	}
}

// WithContainerFormat sets the destination container format.
func WithContainerFormat(format mediatypes.ContainerFormat) Option {
	return func(c *Converter) {
		c.format = format
	}
}

// WithReadSettings sets the decode target of video reader outputs.
func WithReadSettings(settings *mediatypes.ReadSettings) Option {
	return func(c *Converter) {
		c.readSettings = settings
	}
}

// WithEncodeSettings sets the encode target of video writer inputs.
func WithEncodeSettings(settings *mediatypes.EncodeSettings) Option {
	return func(c *Converter) {
		c.encodeSettings = settings
	}
}

// WithSampleProcessor sets the hook run on every video sample.
func WithSampleProcessor(p SampleProcessor) Option {
	return func(c *Converter) {
		c.processor = p
	}
}

// WithRetryConfig sets the retry policy for removing an existing destination.
func WithRetryConfig(config filesystem.RetryConfig) Option {
	return func(c *Converter) {
		c.retry = config
	}
}

// New creates a converter for the asset identified by assetID. completion
// may be nil when the caller uses Wait instead.
func New(source mediatypes.AssetSource, capability mediatypes.Capability, assetID string, completion Completion, opts ...Option) *Converter {
	c := &Converter{
		id:             uuid.NewString(),
		assetID:        assetID,
		source:         source,
		capability:     capability,
		completion:     completion,
		format:         mediatypes.ContainerMOV,
		readSettings:   &mediatypes.ReadSettings{PixelFormat: mediatypes.PixelFormatARGB32},
		encodeSettings: &mediatypes.EncodeSettings{Codec: mediatypes.CodecH264},
		retry:          filesystem.DefaultRetryConfig(),
		wake:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.outputPath == "" {
		c.outputPath = DefaultOutputPath(os.TempDir(), assetID, c.format)
	}
	c.log = logging.WithPrefix("job " + c.id)
	return c
}

// DefaultOutputPath returns dir/<asset name><format extension>.
func DefaultOutputPath(dir, assetID string, format mediatypes.ContainerFormat) string {
	name := filepath.Base(assetID)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "out"
	}
	return filepath.Join(dir, name+format.Extension())
}

// ID returns the job identifier.
func (c *Converter) ID() string {
	return c.id
}

// AssetID returns the identifier of the source asset.
func (c *Converter) AssetID() string {
	return c.assetID
}

// OutputPath returns the destination file.
func (c *Converter) OutputPath() string {
	return c.outputPath
}

// Start begins the job in the background. Cancelling ctx cancels the job.
func (c *Converter) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	c.mu.Lock()
	c.startedAt = time.Now()
	c.mu.Unlock()

	metrics.ConversionJobsInProgress.Inc()
	c.log.Info("Converting %s to %s", c.assetID, c.outputPath)

	go func() {
		stop := context.AfterFunc(ctx, c.Cancel)
		defer stop()
		c.finish(c.settle(ctx, c.run(ctx)))
	}()
	return nil
}

// Cancel requests cancellation. It is safe to call at any time and more than
// once. Workers stop at their next poll; the outcome is still reported
// through the completion callback.
func (c *Converter) Cancel() {
	if c.cancelled.CompareAndSwap(false, true) {
		c.log.Info("Cancellation requested")
	}
	c.wakeOnce.Do(func() {
		close(c.wake)
	})
}

// State returns the job state derived from the result, the cancellation flag
// and whether reading has started.
func (c *Converter) State() ProcessState {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.result != nil:
		return StateFinished
	case c.cancelled.Load():
		return StateCancelled
	case c.reading:
		return StateProcessing
	default:
		return StateIdle
	}
}

// Phase returns the pipeline step currently running.
func (c *Converter) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Result returns the outcome and true once the job has finished.
func (c *Converter) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// Executing reports whether the job was started and has not finished.
func (c *Converter) Executing() bool {
	return c.started.Load() && !c.Finished()
}

// Finished reports whether the result has been assigned.
func (c *Converter) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result != nil
}

// Done is closed after the result is assigned and the completion callback
// has returned.
func (c *Converter) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the job finishes or ctx is done.
func (c *Converter) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		r, _ := c.Result()
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Converter) isCancelled() bool {
	return c.cancelled.Load()
}

// recordTransferError keeps the first error reported by any transfer.
func (c *Converter) recordTransferError(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.transferErr == nil {
		c.transferErr = err
	}
}

func (c *Converter) transferError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.transferErr
}

func (c *Converter) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.log.Debug("Phase %s", p)
}

func (c *Converter) newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, JobID: c.id, Err: err}
}

// abort turns a configuration error into a failure Result.
func (c *Converter) abort(err error) Result {
	var convErr *Error
	if !errors.As(err, &convErr) {
		convErr = c.newError(ErrReaderStartFailed, "configure", err)
	}
	return Result{Outcome: OutcomeFailure, Err: convErr}
}

func (c *Converter) run(ctx context.Context) Result {
	if c.isCancelled() {
		return cancellation(c.id, "start")
	}

	c.setPhase(PhaseLoadingMetadata)
	asset, err := c.source.RequestAsset(ctx, c.assetID)
	if err != nil {
		return c.metadataFailure("request asset", err)
	}
	tracks, err := asset.LoadTracks(ctx)
	if err != nil {
		return c.metadataFailure("load tracks", err)
	}
	c.log.Debug("Loaded %d tracks from %s", len(tracks), asset.Location())

	if c.isCancelled() {
		return cancellation(c.id, "load tracks")
	}

	c.setPhase(PhaseConfiguring)
	if samePath(c.outputPath, asset.Location()) {
		return failure(ErrWriterStartFailed, c.id, "check destination",
			fmt.Errorf("destination %s is the source asset", c.outputPath))
	}

	reader, err := c.capability.OpenReader(asset)
	if err != nil {
		return failure(ErrReaderStartFailed, c.id, "open reader", err)
	}

	writer, err := c.capability.OpenWriter(c.outputPath, c.format)
	if err != nil {
		reader.CancelReading()
		return failure(ErrWriterStartFailed, c.id, "open writer", err)
	}

	release := func() {
		reader.CancelReading()
		writer.CancelWriting()
	}

	buckets := Classify(tracks, writer.AvailableMediaKinds())
	if dropped := len(tracks) - buckets.Len(); dropped > 0 {
		c.log.Info("Dropping %d tracks not supported by %s", dropped, c.format)
	}
	if buckets.Len() == 0 {
		release()
		return failure(ErrNoMediaData, c.id, "classify", errors.New("no tracks to convert"))
	}

	transfers, err := c.wire(ctx, asset, reader, writer, buckets)
	if err != nil {
		release()
		return c.abort(err)
	}

	if c.isCancelled() {
		release()
		return cancellation(c.id, "configure")
	}

	// Only remove the previous output once every input is wired.
	if removed, err := filesystem.RemoveIfExists(c.outputPath, c.retry); err != nil {
		release()
		return failure(ErrWriterStartFailed, c.id, "remove destination", err)
	} else if removed {
		c.log.Debug("Removed existing output %s", c.outputPath)
	}

	if err := reader.StartReading(); err != nil {
		release()
		return failure(ErrReaderStartFailed, c.id, "start reading", err)
	}
	c.mu.Lock()
	c.reading = true
	c.mu.Unlock()

	if err := writer.StartWriting(); err != nil {
		release()
		return failure(ErrWriterStartFailed, c.id, "start writing", err)
	}
	writer.StartSession(0)

	c.setPhase(PhaseTransferring)
	c.log.Info("Transferring %d video and %d passthrough tracks", len(buckets.Transformable), len(buckets.Passthrough))

	var wg sync.WaitGroup
	wg.Add(len(transfers))
	for _, t := range transfers {
		go t.run(&wg)
	}
	wg.Wait()

	c.setPhase(PhaseReconciling)
	return c.reconcile(ctx, reader, writer, transfers)
}

// samePath reports whether a and b name the same file, either lexically or,
// when both exist, on disk.
func samePath(a, b string) bool {
	if abs, err := filepath.Abs(a); err == nil {
		a = abs
	}
	if abs, err := filepath.Abs(b); err == nil {
		b = abs
	}
	if a == b {
		return true
	}
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}

func (c *Converter) metadataFailure(op string, err error) Result {
	return failure(ErrMetadataLoadFailed, c.id, op, err)
}

// settle reports a failure that raced with cancellation as a cancellation.
func (c *Converter) settle(ctx context.Context, r Result) Result {
	if r.Outcome != OutcomeFailure {
		return r
	}
	if !c.isCancelled() && ctx.Err() == nil {
		return r
	}
	c.Cancel()
	op := ""
	var convErr *Error
	if errors.As(r.Err, &convErr) {
		op = convErr.Op
	}
	return cancellation(c.id, op)
}

// finish assigns the result and invokes the completion callback, once.
func (c *Converter) finish(r Result) {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		c.result = &r
		c.phase = PhaseDone
		elapsed := time.Since(c.startedAt)
		c.mu.Unlock()

		metrics.ConversionJobsInProgress.Dec()
		metrics.ConversionJobDuration.Observe(elapsed.Seconds())
		metrics.ConversionJobsTotal.WithLabelValues(r.Outcome.String()).Inc()

		switch r.Outcome {
		case OutcomeSuccess:
			c.log.Info("Conversion finished in %v: %s", elapsed.Round(time.Millisecond), r.Output.Location())
		case OutcomeCancellation:
			c.log.Info("Conversion cancelled after %v", elapsed.Round(time.Millisecond))
		default:
			metrics.ConversionFailuresTotal.WithLabelValues(kindLabel(r.Err)).Inc()
			c.log.Error("Conversion failed after %v: %v", elapsed.Round(time.Millisecond), r.Err)
		}

		if c.completion != nil {
			c.completion(r.Succeeded(), r.Output, r.Err)
		}
		close(c.done)
	})
}
