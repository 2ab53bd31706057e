package converter_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-converter/internal/container"
	"media-converter/internal/converter"
	"media-converter/internal/mediatypes"
)

const testTimeout = 10 * time.Second

// recordingCapability remembers the writers it opens so tests can inspect
// what each input received.
type recordingCapability struct {
	*container.Engine

	mu      sync.Mutex
	readers int
	writers []*container.Writer
}

func newCapability() *recordingCapability {
	return &recordingCapability{Engine: container.New(container.WithQueueDepth(2))}
}

func (r *recordingCapability) OpenReader(asset mediatypes.Asset) (mediatypes.Reader, error) {
	r.mu.Lock()
	r.readers++
	r.mu.Unlock()
	return r.Engine.OpenReader(asset)
}

func (r *recordingCapability) OpenWriter(path string, format mediatypes.ContainerFormat) (mediatypes.Writer, error) {
	w, err := r.Engine.OpenWriter(path, format)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.writers = append(r.writers, w.(*container.Writer))
	r.mu.Unlock()
	return w, nil
}

func (r *recordingCapability) lastWriter(t *testing.T) *container.Writer {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.writers)
	return r.writers[len(r.writers)-1]
}

func (r *recordingCapability) readerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readers
}

func trackOf(kind mediatypes.MediaKind, n int) container.TrackSpec {
	var format mediatypes.FormatDescription
	switch kind {
	case mediatypes.KindVideo:
		format = mediatypes.FormatDescription{Kind: kind, Codec: mediatypes.CodecHEVC, Width: 4, Height: 2}
	case mediatypes.KindAudio:
		format = mediatypes.FormatDescription{Kind: kind, Codec: "aac", SampleRate: 48000, Channels: 2}
	default:
		format = mediatypes.FormatDescription{Kind: kind, Codec: "tx3g", Language: "eng"}
	}

	spec := container.TrackSpec{Kind: kind, Formats: []mediatypes.FormatDescription{format}}
	for i := 0; i < n; i++ {
		f := format
		spec.Samples = append(spec.Samples, mediatypes.Sample{
			PTS:      time.Duration(i) * 40 * time.Millisecond,
			Duration: 40 * time.Millisecond,
			Data:     []byte(fmt.Sprintf("%s-%d", kind, i)),
			Format:   &f,
		})
	}
	return spec
}

type fixture struct {
	dir        string
	source     container.FileSource
	capability *recordingCapability
	output     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{
		dir:        dir,
		source:     container.FileSource{Root: dir},
		capability: newCapability(),
		output:     filepath.Join(dir, "out.mov"),
	}
}

func (f *fixture) asset(t *testing.T, name string, tracks ...container.TrackSpec) string {
	t.Helper()
	require.NoError(t, container.Create(filepath.Join(f.dir, name), mediatypes.ContainerMOV, tracks))
	return name
}

type completionRecorder struct {
	calls     atomic.Int32
	succeeded atomic.Bool
	output    atomic.Value
}

func (r *completionRecorder) complete(succeeded bool, output mediatypes.Asset, err error) {
	r.calls.Add(1)
	r.succeeded.Store(succeeded)
	if output != nil {
		r.output.Store(output.Location())
	}
}

func (f *fixture) converter(assetID string, rec *completionRecorder, opts ...converter.Option) *converter.Converter {
	opts = append([]converter.Option{converter.WithOutputPath(f.output)}, opts...)
	return converter.New(f.source, f.capability, assetID, rec.complete, opts...)
}

func wait(t *testing.T, conv *converter.Converter) converter.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	result, err := conv.Wait(ctx)
	require.NoError(t, err, "conversion did not finish")
	return result
}

func run(t *testing.T, conv *converter.Converter) converter.Result {
	t.Helper()
	require.NoError(t, conv.Start(context.Background()))
	return wait(t, conv)
}

func outputTracks(t *testing.T, path string) []*container.Track {
	t.Helper()
	tracks, err := container.Open(path).Tracks(context.Background())
	require.NoError(t, err)
	return tracks
}

func TestConvertVideoAndAudio(t *testing.T) {
	f := newFixture(t)
	video := trackOf(mediatypes.KindVideo, 10)
	audio := trackOf(mediatypes.KindAudio, 10)
	id := f.asset(t, "clip.mvc", video, audio)

	rec := &completionRecorder{}
	conv := f.converter(id, rec)
	assert.Equal(t, converter.StateIdle, conv.State())
	assert.Equal(t, converter.PhaseIdle, conv.Phase())
	assert.False(t, conv.Executing())

	result := run(t, conv)
	require.Equal(t, converter.OutcomeSuccess, result.Outcome, "error: %v", result.Err)
	assert.True(t, result.Succeeded())
	assert.NoError(t, result.Err)
	require.NotNil(t, result.Output)
	assert.Equal(t, f.output, result.Output.Location())

	assert.Equal(t, int32(1), rec.calls.Load())
	assert.True(t, rec.succeeded.Load())
	assert.Equal(t, f.output, rec.output.Load())

	assert.Equal(t, converter.StateFinished, conv.State())
	assert.Equal(t, converter.PhaseDone, conv.Phase())
	assert.True(t, conv.Finished())
	assert.False(t, conv.Executing())

	tracks := outputTracks(t, f.output)
	require.Len(t, tracks, 2)

	assert.Equal(t, mediatypes.KindVideo, tracks[0].Kind())
	assert.Equal(t, mediatypes.CodecH264, tracks[0].FormatDescriptions()[0].Codec)
	assert.Equal(t, mediatypes.KindAudio, tracks[1].Kind())
	assert.Equal(t, "aac", tracks[1].FormatDescriptions()[0].Codec)

	for i, spec := range []container.TrackSpec{video, audio} {
		got := tracks[i].Samples()
		require.Len(t, got, 10)
		for j, s := range got {
			assert.Equal(t, spec.Samples[j].PTS, s.PTS)
			assert.Equal(t, spec.Samples[j].Data, s.Data)
		}
	}
}

func TestCancelAfterThirdVideoSample(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 10), trackOf(mediatypes.KindAudio, 10))

	rec := &completionRecorder{}
	var conv *converter.Converter
	processed := 0
	conv = f.converter(id, rec, converter.WithSampleProcessor(func(*mediatypes.Sample) error {
		processed++
		if processed == 3 {
			conv.Cancel()
		}
		return nil
	}))

	result := run(t, conv)
	assert.Equal(t, converter.OutcomeCancellation, result.Outcome)
	assert.ErrorIs(t, result.Err, converter.ErrCancelled)
	assert.Nil(t, result.Output)
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.False(t, rec.succeeded.Load())

	inputs := f.capability.lastWriter(t).Inputs()
	require.Len(t, inputs, 2)
	assert.LessOrEqual(t, inputs[0].AppendedCount(), 3)
	assert.True(t, inputs[0].IsFinished())
	assert.NoFileExists(t, f.output)
	assert.Equal(t, converter.StateFinished, conv.State())
}

func TestCancelBeforeStart(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 10), trackOf(mediatypes.KindAudio, 10))

	rec := &completionRecorder{}
	conv := f.converter(id, rec)
	conv.Cancel()
	conv.Cancel()
	assert.Equal(t, converter.StateCancelled, conv.State())

	result := run(t, conv)
	assert.Equal(t, converter.OutcomeCancellation, result.Outcome)
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.Zero(t, f.capability.readerCount())
	assert.NoFileExists(t, f.output)
}

func TestContextCancellationCancelsJob(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 50), trackOf(mediatypes.KindAudio, 50))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &completionRecorder{}
	processed := 0
	var conv *converter.Converter
	conv = f.converter(id, rec, converter.WithSampleProcessor(func(*mediatypes.Sample) error {
		processed++
		if processed == 5 {
			cancel()
			for conv.State() != converter.StateCancelled {
				time.Sleep(time.Millisecond)
			}
		}
		return nil
	}))

	require.NoError(t, conv.Start(ctx))
	result := wait(t, conv)
	assert.Equal(t, converter.OutcomeCancellation, result.Outcome)
	assert.NoFileExists(t, f.output)
}

func TestSampleProcessingErrorWins(t *testing.T) {
	hookErr := errors.New("frame 4 is unreadable")

	for i := 0; i < 20; i++ {
		t.Run(fmt.Sprintf("run %d", i), func(t *testing.T) {
			f := newFixture(t)
			id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 10), trackOf(mediatypes.KindAudio, 10))

			processed := 0
			rec := &completionRecorder{}
			conv := f.converter(id, rec, converter.WithSampleProcessor(func(*mediatypes.Sample) error {
				processed++
				if processed == 4 {
					return hookErr
				}
				return nil
			}))

			result := run(t, conv)
			require.Equal(t, converter.OutcomeFailure, result.Outcome)
			assert.ErrorIs(t, result.Err, hookErr)
			assert.ErrorIs(t, result.Err, converter.ErrSampleProcessingFailed)
			assert.Equal(t, converter.ErrSampleProcessingFailed, converter.KindOf(result.Err))
			assert.Equal(t, int32(1), rec.calls.Load())
			assert.NoFileExists(t, f.output)

			inputs := f.capability.lastWriter(t).Inputs()
			assert.Equal(t, 3, inputs[0].AppendedCount())
		})
	}
}

func TestFirstProcessingErrorIsKept(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc",
		trackOf(mediatypes.KindVideo, 10),
		trackOf(mediatypes.KindVideo, 10),
		trackOf(mediatypes.KindVideo, 10))

	var mu sync.Mutex
	var raised []error
	conv := f.converter(id, &completionRecorder{}, converter.WithSampleProcessor(func(s *mediatypes.Sample) error {
		err := fmt.Errorf("track %d failed", s.TrackID)
		mu.Lock()
		raised = append(raised, err)
		mu.Unlock()
		return err
	}))

	result := run(t, conv)
	require.Equal(t, converter.OutcomeFailure, result.Outcome)

	mu.Lock()
	defer mu.Unlock()
	matched := 0
	for _, err := range raised {
		if errors.Is(result.Err, err) {
			matched++
		}
	}
	assert.Equal(t, 1, matched, "result must carry exactly one of the raised errors")
}

func TestCompletionFiresExactlyOnce(t *testing.T) {
	kinds := []mediatypes.MediaKind{
		mediatypes.KindVideo,
		mediatypes.KindAudio,
		mediatypes.KindSubtitle,
		mediatypes.KindVideo,
		mediatypes.KindText,
	}

	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d tracks", n), func(t *testing.T) {
			f := newFixture(t)
			var specs []container.TrackSpec
			for i := 0; i < n; i++ {
				specs = append(specs, trackOf(kinds[i], 8))
			}
			id := f.asset(t, "clip.mvc", specs...)

			rec := &completionRecorder{}
			conv := f.converter(id, rec)
			first := run(t, conv)
			require.Equal(t, converter.OutcomeSuccess, first.Outcome, "error: %v", first.Err)

			conv.Cancel()
			time.Sleep(20 * time.Millisecond)

			assert.Equal(t, int32(1), rec.calls.Load())
			again, ok := conv.Result()
			require.True(t, ok)
			assert.Equal(t, first, again)
			assert.Equal(t, converter.StateFinished, conv.State())
			assert.Len(t, outputTracks(t, f.output), n)
		})
	}
}

func TestNoMediaData(t *testing.T) {
	noFormats := trackOf(mediatypes.KindAudio, 4)
	noFormats.Formats = nil

	tests := []struct {
		name   string
		tracks []container.TrackSpec
	}{
		{
			name:   "video track with no samples",
			tracks: []container.TrackSpec{trackOf(mediatypes.KindVideo, 0), trackOf(mediatypes.KindAudio, 4)},
		},
		{
			name:   "passthrough track with no format",
			tracks: []container.TrackSpec{trackOf(mediatypes.KindVideo, 4), noFormats},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.asset(t, "clip.mvc", tt.tracks...)

			rec := &completionRecorder{}
			result := run(t, f.converter(id, rec))

			require.Equal(t, converter.OutcomeFailure, result.Outcome)
			assert.ErrorIs(t, result.Err, converter.ErrNoMediaData)
			assert.Equal(t, int32(1), rec.calls.Load())

			writer := f.capability.lastWriter(t)
			assert.Equal(t, mediatypes.StatusCancelled, writer.Status(), "writer must never start")
			assert.NoFileExists(t, f.output)
		})
	}
}

func TestConfigureFailureKeepsPreviousOutput(t *testing.T) {
	tests := []struct {
		name   string
		tracks []container.TrackSpec
		opts   []converter.Option
		kind   error
	}{
		{
			name:   "video track with no samples",
			tracks: []container.TrackSpec{trackOf(mediatypes.KindVideo, 0), trackOf(mediatypes.KindAudio, 4)},
			kind:   converter.ErrNoMediaData,
		},
		{
			name:   "no track accepted by destination",
			tracks: []container.TrackSpec{trackOf(mediatypes.KindVideo, 4)},
			opts:   []converter.Option{converter.WithContainerFormat(mediatypes.ContainerM4A)},
			kind:   converter.ErrNoMediaData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.asset(t, "clip.mov", tt.tracks...)
			require.NoError(t, os.WriteFile(f.output, []byte("previous"), 0o644))

			result := run(t, f.converter(id, &completionRecorder{}, tt.opts...))

			require.Equal(t, converter.OutcomeFailure, result.Outcome)
			assert.ErrorIs(t, result.Err, tt.kind)
			data, err := os.ReadFile(f.output)
			require.NoError(t, err, "previous output must survive")
			assert.Equal(t, "previous", string(data))
		})
	}
}

func TestDestinationIsSource(t *testing.T) {
	tests := []struct {
		name   string
		output func(f *fixture) string
	}{
		{"same path", func(f *fixture) string { return filepath.Join(f.dir, "clip.mov") }},
		{"unclean path", func(f *fixture) string { return filepath.Join(f.dir, "sub", "..", "clip.mov") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.asset(t, "clip.mov", trackOf(mediatypes.KindVideo, 4), trackOf(mediatypes.KindAudio, 4))
			source := filepath.Join(f.dir, "clip.mov")
			before, err := os.ReadFile(source)
			require.NoError(t, err)

			conv := converter.New(f.source, f.capability, id, nil, converter.WithOutputPath(tt.output(f)))
			result := run(t, conv)

			require.Equal(t, converter.OutcomeFailure, result.Outcome)
			assert.ErrorIs(t, result.Err, converter.ErrWriterStartFailed)
			after, err := os.ReadFile(source)
			require.NoError(t, err, "source must survive")
			assert.Equal(t, before, after)
		})
	}
}

func TestRerunOverwritesDestination(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 5), trackOf(mediatypes.KindAudio, 5))
	require.NoError(t, os.WriteFile(f.output, []byte("stale"), 0o644))

	for i := 0; i < 2; i++ {
		result := run(t, f.converter(id, &completionRecorder{}))
		require.Equal(t, converter.OutcomeSuccess, result.Outcome, "run %d: %v", i, result.Err)

		tracks := outputTracks(t, f.output)
		require.Len(t, tracks, 2)
		assert.Equal(t, 5, tracks[0].SampleCount())
		assert.Equal(t, 5, tracks[1].SampleCount())
	}
}

func TestCorruptSampleReportsReaderFailure(t *testing.T) {
	f := newFixture(t)
	audio := trackOf(mediatypes.KindAudio, 10)
	audio.CorruptAt = []int{5}
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 10), audio)

	result := run(t, f.converter(id, &completionRecorder{}))
	require.Equal(t, converter.OutcomeFailure, result.Outcome)
	assert.ErrorIs(t, result.Err, converter.ErrReaderFailed)
	assert.Contains(t, result.Err.Error(), "corrupt sample data")
	assert.NoFileExists(t, f.output)
}

func TestNonMonotonicTimestampReportsWriterFailure(t *testing.T) {
	f := newFixture(t)
	audio := trackOf(mediatypes.KindAudio, 10)
	audio.Samples[6].PTS = 0
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 10), audio)

	result := run(t, f.converter(id, &completionRecorder{}))
	require.Equal(t, converter.OutcomeFailure, result.Outcome)
	assert.ErrorIs(t, result.Err, converter.ErrWriterFailed)
	assert.Contains(t, result.Err.Error(), "non-monotonic timestamp")
	assert.NoFileExists(t, f.output)
}

func TestMetadataLoadFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "broken.mvc"), []byte("{"), 0o644))

	for _, id := range []string{"missing.mvc", "broken.mvc"} {
		t.Run(id, func(t *testing.T) {
			rec := &completionRecorder{}
			result := run(t, f.converter(id, rec))
			require.Equal(t, converter.OutcomeFailure, result.Outcome)
			assert.ErrorIs(t, result.Err, converter.ErrMetadataLoadFailed)
			assert.Equal(t, int32(1), rec.calls.Load())
			assert.Zero(t, f.capability.readerCount())
		})
	}
}

func TestUnsupportedKindsAreDropped(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc",
		trackOf(mediatypes.KindVideo, 6),
		trackOf(mediatypes.KindTimecode, 6),
		trackOf(mediatypes.KindAudio, 6))
	f.output = filepath.Join(f.dir, "out.mp4")

	result := run(t, f.converter(id, &completionRecorder{}, converter.WithContainerFormat(mediatypes.ContainerMP4)))
	require.Equal(t, converter.OutcomeSuccess, result.Outcome, "error: %v", result.Err)

	tracks := outputTracks(t, f.output)
	require.Len(t, tracks, 2)
	assert.Equal(t, mediatypes.KindVideo, tracks[0].Kind())
	assert.Equal(t, mediatypes.KindAudio, tracks[1].Kind())
}

func TestNothingToConvert(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 3))
	f.output = filepath.Join(f.dir, "out.m4a")

	result := run(t, f.converter(id, &completionRecorder{}, converter.WithContainerFormat(mediatypes.ContainerM4A)))
	require.Equal(t, converter.OutcomeFailure, result.Outcome)
	assert.ErrorIs(t, result.Err, converter.ErrNoMediaData)
}

// rejectingCapability hands out writer inputs that refuse appends past a limit.
type rejectingCapability struct {
	*container.Engine
	limit int
}

type rejectingWriter struct {
	mediatypes.Writer
	limit int
}

type rejectingInput struct {
	mediatypes.WriterInput
	limit    int
	appended int
}

func (c rejectingCapability) OpenWriter(path string, format mediatypes.ContainerFormat) (mediatypes.Writer, error) {
	w, err := c.Engine.OpenWriter(path, format)
	if err != nil {
		return nil, err
	}
	return &rejectingWriter{Writer: w, limit: c.limit}, nil
}

func (w *rejectingWriter) AddInput(kind mediatypes.MediaKind, settings *mediatypes.EncodeSettings, hint *mediatypes.FormatDescription) (mediatypes.WriterInput, error) {
	in, err := w.Writer.AddInput(kind, settings, hint)
	if err != nil {
		return nil, err
	}
	return &rejectingInput{WriterInput: in, limit: w.limit}, nil
}

func (in *rejectingInput) Append(sample *mediatypes.Sample) bool {
	if in.appended >= in.limit {
		return false
	}
	in.appended++
	return in.WriterInput.Append(sample)
}

func TestAppendRejected(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindVideo, 10))

	capability := rejectingCapability{Engine: container.New(), limit: 4}
	conv := converter.New(f.source, capability, id, nil, converter.WithOutputPath(f.output))

	result := run(t, conv)
	require.Equal(t, converter.OutcomeFailure, result.Outcome)
	assert.ErrorIs(t, result.Err, converter.ErrAppendRejected)
	assert.NoFileExists(t, f.output)
}

func TestStartTwice(t *testing.T) {
	f := newFixture(t)
	id := f.asset(t, "clip.mvc", trackOf(mediatypes.KindAudio, 2))
	conv := f.converter(id, &completionRecorder{})

	require.NoError(t, conv.Start(context.Background()))
	assert.ErrorIs(t, conv.Start(context.Background()), converter.ErrAlreadyStarted)
	wait(t, conv)
}

func TestWaitHonorsContext(t *testing.T) {
	conv := converter.New(container.FileSource{}, container.New(), "never-started", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := conv.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := conv.Result()
	assert.False(t, ok)
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		assetID string
		format  mediatypes.ContainerFormat
		want    string
	}{
		{"clip.mvc", mediatypes.ContainerMOV, filepath.Join("out", "clip.mov")},
		{"nested/dir/clip.mvc", mediatypes.ContainerMP4, filepath.Join("out", "clip.mp4")},
		{"noext", mediatypes.ContainerM4A, filepath.Join("out", "noext.m4a")},
		{"", mediatypes.ContainerMOV, filepath.Join("out", "out.mov")},
	}

	for _, tt := range tests {
		t.Run(tt.assetID, func(t *testing.T) {
			assert.Equal(t, tt.want, converter.DefaultOutputPath("out", tt.assetID, tt.format))
		})
	}

	conv := converter.New(container.FileSource{}, container.New(), "clip.mvc", nil)
	assert.Equal(t, filepath.Join(os.TempDir(), "clip.mov"), conv.OutputPath())
	assert.NotEmpty(t, conv.ID())
	assert.Equal(t, "clip.mvc", conv.AssetID())
}
