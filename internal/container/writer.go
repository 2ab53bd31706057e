package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"media-converter/internal/mediatypes"
)

// DefaultQueueDepth is the number of samples an input buffers before it
// reports that it is not ready for more data.
const DefaultQueueDepth = 4

// ErrDestinationExists is returned when the writer's destination already exists.
var ErrDestinationExists = errors.New("destination file already exists")

// Writer multiplexes samples from its inputs into a new container file.
type Writer struct {
	path       string
	format     mediatypes.ContainerFormat
	queueDepth int

	mu           sync.Mutex
	status       mediatypes.Status
	err          error
	inputs       []*Input
	file         *os.File
	session      bool
	sessionStart time.Duration

	drain    sync.WaitGroup
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWriter creates a writer for path. The file is created by StartWriting,
// which fails if one already exists there; writers never overwrite.
func NewWriter(path string, format mediatypes.ContainerFormat, queueDepth int) (*Writer, error) {
	if len(format.AvailableKinds()) == 0 {
		return nil, fmt.Errorf("unsupported container format %q", format)
	}
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &Writer{
		path:       path,
		format:     format,
		queueDepth: queueDepth,
		stopped:    make(chan struct{}),
	}, nil
}

// AvailableMediaKinds returns the media kinds the destination format accepts.
func (w *Writer) AvailableMediaKinds() []mediatypes.MediaKind {
	return w.format.AvailableKinds()
}

// AddInput attaches an input. With nil settings the samples are stored as
// received and hint is required.
func (w *Writer) AddInput(kind mediatypes.MediaKind, settings *mediatypes.EncodeSettings, hint *mediatypes.FormatDescription) (mediatypes.WriterInput, error) {
	if !w.format.Accepts(kind) {
		return nil, fmt.Errorf("%s container does not accept %s tracks", w.format, kind)
	}
	if settings != nil && kind != mediatypes.KindVideo {
		return nil, fmt.Errorf("cannot encode %s tracks", kind)
	}
	if settings == nil && hint == nil {
		return nil, fmt.Errorf("passthrough %s input requires a format hint", kind)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != mediatypes.StatusUnknown {
		return nil, fmt.Errorf("cannot add input while writer is %s", w.status)
	}

	in := &Input{
		writer:   w,
		kind:     kind,
		settings: settings,
		hint:     hint,
		queue:    make(chan mediatypes.Sample, w.queueDepth),
		ready:    make(chan struct{}, 1),
	}
	w.inputs = append(w.inputs, in)
	return in, nil
}

// Inputs returns the inputs in the order they were added.
func (w *Writer) Inputs() []*Input {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Input, len(w.inputs))
	copy(out, w.inputs)
	return out
}

// StartWriting creates the destination file and starts accepting samples.
func (w *Writer) StartWriting() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != mediatypes.StatusUnknown {
		return fmt.Errorf("cannot start writing while writer is %s", w.status)
	}
	if len(w.inputs) == 0 {
		w.status = mediatypes.StatusFailed
		w.err = errors.New("writer has no inputs")
		return w.err
	}

	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			err = fmt.Errorf("%s: %w", w.path, ErrDestinationExists)
		}
		w.status = mediatypes.StatusFailed
		w.err = err
		return err
	}

	w.file = f
	w.status = mediatypes.StatusWriting
	for _, in := range w.inputs {
		w.drain.Add(1)
		go in.run()
		in.signal()
	}
	return nil
}

// StartSession sets the source time of the first sample in the output.
// Samples stamped before it are dropped.
func (w *Writer) StartSession(at time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = true
	w.sessionStart = at
}

// CancelWriting stops the writer and removes the partial file.
func (w *Writer) CancelWriting() {
	w.mu.Lock()
	if w.status != mediatypes.StatusUnknown && w.status != mediatypes.StatusWriting {
		w.mu.Unlock()
		return
	}
	w.status = mediatypes.StatusCancelled
	inputs := w.inputs
	w.mu.Unlock()

	w.stop()
	for _, in := range inputs {
		in.MarkAsFinished()
	}
	w.discardFile()
}

// FinishWriting waits for every input to drain and writes the container.
// Every input must have been marked as finished.
func (w *Writer) FinishWriting(ctx context.Context) {
	w.mu.Lock()
	if w.status != mediatypes.StatusWriting {
		w.mu.Unlock()
		return
	}
	inputs := w.inputs
	w.mu.Unlock()

	for i, in := range inputs {
		if !in.isFinished() {
			w.fail(fmt.Errorf("input %d was not marked as finished", i))
			return
		}
	}

	drained := make(chan struct{})
	go func() {
		w.drain.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		w.fail(fmt.Errorf("finish writing: %w", ctx.Err()))
		return
	}

	w.mu.Lock()
	if w.status != mediatypes.StatusWriting {
		w.mu.Unlock()
		return
	}
	start := w.sessionStart
	f := w.file
	w.mu.Unlock()

	if err := writeDocument(f, buildDocument(w.format, start, inputs)); err != nil {
		w.fail(err)
		return
	}

	w.mu.Lock()
	w.file = nil
	if w.status == mediatypes.StatusWriting {
		w.status = mediatypes.StatusCompleted
	}
	w.mu.Unlock()
	w.stop()
}

func buildDocument(format mediatypes.ContainerFormat, start time.Duration, inputs []*Input) *document {
	doc := &document{Format: format, SessionStart: start}
	for i, in := range inputs {
		rec := trackRecord{ID: i + 1, Kind: in.kind, Samples: in.storedSamples()}
		if f := in.outputFormat(); f != nil {
			rec.Formats = []mediatypes.FormatDescription{*f}
		}
		doc.Tracks = append(doc.Tracks, rec)
	}
	return doc
}

// Status returns the writer status.
func (w *Writer) Status() mediatypes.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Err returns the failure cause when Status is StatusFailed.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) fail(err error) {
	w.mu.Lock()
	if w.status != mediatypes.StatusWriting {
		w.mu.Unlock()
		return
	}
	w.status = mediatypes.StatusFailed
	w.err = err
	w.mu.Unlock()

	w.stop()
	w.discardFile()
}

func (w *Writer) stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
		w.mu.Lock()
		inputs := w.inputs
		w.mu.Unlock()
		for _, in := range inputs {
			in.signal()
		}
	})
}

func (w *Writer) discardFile() {
	w.mu.Lock()
	f := w.file
	w.file = nil
	w.mu.Unlock()

	if f != nil {
		_ = f.Close()
		_ = os.Remove(w.path)
	}
}

func (w *Writer) appendable() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != mediatypes.StatusWriting {
		return false, nil
	}
	if !w.session {
		return false, errors.New("sample appended before the session started")
	}
	return true, nil
}

func (w *Writer) writing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status == mediatypes.StatusWriting
}

// Input is one output track of a Writer.
type Input struct {
	writer   *Writer
	kind     mediatypes.MediaKind
	settings *mediatypes.EncodeSettings
	hint     *mediatypes.FormatDescription

	queue chan mediatypes.Sample
	ready chan struct{}

	// sendMu serializes queue sends with closing the queue.
	sendMu sync.Mutex

	mu       sync.Mutex
	finished bool
	appended int
	samples  []sampleRecord
	lastPTS  time.Duration
	hasLast  bool
}

// Kind returns the media kind of the input.
func (in *Input) Kind() mediatypes.MediaKind {
	return in.kind
}

// Settings returns the encode settings, nil for passthrough.
func (in *Input) Settings() *mediatypes.EncodeSettings {
	return in.settings
}

// Hint returns the format hint the input was created with.
func (in *Input) Hint() *mediatypes.FormatDescription {
	return in.hint
}

// Ready is signalled when the input drains a sample or the writer stops.
func (in *Input) Ready() <-chan struct{} {
	return in.ready
}

// IsReadyForMoreMediaData reports whether Append would be accepted without
// blocking. Once the writer has stopped it reports true so that a pending
// transfer observes the rejection on its next append.
func (in *Input) IsReadyForMoreMediaData() bool {
	in.mu.Lock()
	finished := in.finished
	in.mu.Unlock()
	if finished {
		return false
	}
	if !in.writer.writing() {
		return true
	}
	return len(in.queue) < cap(in.queue)
}

// Append queues a sample, blocking while the queue is full. It returns false
// if the writer is not writing, the input is finished, or the session has not
// started.
func (in *Input) Append(sample *mediatypes.Sample) bool {
	if sample == nil {
		return false
	}

	in.sendMu.Lock()
	defer in.sendMu.Unlock()

	if in.isFinished() {
		return false
	}
	ok, err := in.writer.appendable()
	if err != nil {
		in.writer.fail(err)
		return false
	}
	if !ok {
		return false
	}

	select {
	case in.queue <- *sample:
	case <-in.writer.stopped:
		return false
	}

	in.mu.Lock()
	in.appended++
	in.mu.Unlock()
	return true
}

// MarkAsFinished closes the input. Later appends are rejected.
func (in *Input) MarkAsFinished() {
	in.sendMu.Lock()
	defer in.sendMu.Unlock()

	in.mu.Lock()
	if in.finished {
		in.mu.Unlock()
		return
	}
	in.finished = true
	in.mu.Unlock()

	close(in.queue)
}

// AppendedCount returns the number of samples accepted by Append.
func (in *Input) AppendedCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.appended
}

// IsFinished reports whether MarkAsFinished was called.
func (in *Input) IsFinished() bool {
	return in.isFinished()
}

func (in *Input) isFinished() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.finished
}

func (in *Input) storedSamples() []sampleRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]sampleRecord, len(in.samples))
	copy(out, in.samples)
	return out
}

func (in *Input) signal() {
	select {
	case in.ready <- struct{}{}:
	default:
	}
}

// run drains the input queue into the track until MarkAsFinished closes it.
func (in *Input) run() {
	defer in.writer.drain.Done()

	for s := range in.queue {
		in.store(s)
		in.signal()
	}
}

func (in *Input) store(s mediatypes.Sample) {
	w := in.writer
	w.mu.Lock()
	start := w.sessionStart
	w.mu.Unlock()

	if s.PTS < start {
		return
	}

	in.mu.Lock()
	if in.hasLast && s.PTS < in.lastPTS {
		last := in.lastPTS
		in.mu.Unlock()
		w.fail(fmt.Errorf("%s track: non-monotonic timestamp %v after %v", in.kind, s.PTS, last))
		return
	}
	in.lastPTS = s.PTS
	in.hasLast = true
	in.samples = append(in.samples, sampleRecord{
		PTS:      s.PTS,
		Duration: s.Duration,
		Data:     s.Data,
		Format:   in.encode(s.Format),
	})
	in.mu.Unlock()
}

func (in *Input) encode(f *mediatypes.FormatDescription) *mediatypes.FormatDescription {
	if in.settings == nil || f == nil {
		return f
	}
	out := *f
	out.Codec = in.settings.Codec
	out.PixelFormat = ""
	return &out
}

func (in *Input) outputFormat() *mediatypes.FormatDescription {
	if in.hint == nil {
		return nil
	}
	return in.encode(in.hint)
}
