package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"media-converter/internal/mediatypes"
)

// Reader vends the samples of an Asset through per-track outputs.
type Reader struct {
	asset *Asset

	mu        sync.Mutex
	status    mediatypes.Status
	err       error
	outputs   []*Output
	remaining int
}

// NewReader creates a reader over asset.
func NewReader(asset *Asset) *Reader {
	return &Reader{asset: asset}
}

// AddOutput attaches an output for track. Outputs can only be added before
// reading starts.
func (r *Reader) AddOutput(track mediatypes.Track, settings *mediatypes.ReadSettings) (mediatypes.ReaderOutput, error) {
	t, ok := track.(*Track)
	if !ok || t.asset != r.asset {
		return nil, fmt.Errorf("track %d does not belong to %s", track.ID(), r.asset.Location())
	}
	if settings != nil && t.Kind() != mediatypes.KindVideo {
		return nil, fmt.Errorf("cannot decode %s track %d", t.Kind(), t.ID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != mediatypes.StatusUnknown {
		return nil, fmt.Errorf("cannot add output while reader is %s", r.status)
	}

	out := &Output{reader: r, track: t, settings: settings}
	r.outputs = append(r.outputs, out)
	return out, nil
}

// StartReading moves the reader to StatusReading.
func (r *Reader) StartReading() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != mediatypes.StatusUnknown {
		return fmt.Errorf("cannot start reading while reader is %s", r.status)
	}
	if len(r.outputs) == 0 {
		r.status = mediatypes.StatusFailed
		r.err = errors.New("reader has no outputs")
		return r.err
	}
	if _, _, err := r.asset.load(context.Background()); err != nil {
		r.status = mediatypes.StatusFailed
		r.err = err
		return err
	}

	r.status = mediatypes.StatusReading
	r.remaining = len(r.outputs)
	return nil
}

// CancelReading stops the reader. Further CopyNextSample calls return nil.
func (r *Reader) CancelReading() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == mediatypes.StatusUnknown || r.status == mediatypes.StatusReading {
		r.status = mediatypes.StatusCancelled
	}
}

// Status returns the reader status.
func (r *Reader) Status() mediatypes.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Err returns the failure cause when Status is StatusFailed.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Reader) reading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == mediatypes.StatusReading
}

func (r *Reader) outputExhausted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remaining--
	if r.remaining == 0 && r.status == mediatypes.StatusReading {
		r.status = mediatypes.StatusCompleted
	}
}

func (r *Reader) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == mediatypes.StatusReading {
		r.status = mediatypes.StatusFailed
		r.err = err
	}
}

// Output vends the samples of one track.
type Output struct {
	reader   *Reader
	track    *Track
	settings *mediatypes.ReadSettings

	mu        sync.Mutex
	next      int
	exhausted bool
}

// Track returns the source track.
func (o *Output) Track() mediatypes.Track {
	return o.track
}

// Settings returns the decode settings, nil for passthrough.
func (o *Output) Settings() *mediatypes.ReadSettings {
	return o.settings
}

// CopyNextSample returns the next sample or nil at the end of the track or
// once the reader is no longer reading.
func (o *Output) CopyNextSample() *mediatypes.Sample {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.exhausted || !o.reader.reading() {
		return nil
	}

	samples := o.track.rec.Samples
	if o.next >= len(samples) {
		o.exhausted = true
		o.reader.outputExhausted()
		return nil
	}

	rec := samples[o.next]
	if rec.Corrupt {
		o.exhausted = true
		o.reader.fail(fmt.Errorf("track %d sample %d: corrupt sample data", o.track.ID(), o.next))
		return nil
	}
	o.next++

	s := o.track.sample(rec, o.decode(rec.Format))
	return &s
}

func (o *Output) decode(stored *mediatypes.FormatDescription) *mediatypes.FormatDescription {
	if stored == nil {
		return nil
	}
	f := *stored
	if o.settings != nil {
		f.Codec = mediatypes.CodecRaw
		f.PixelFormat = o.settings.PixelFormat
	}
	return &f
}
