package converter

import (
	"sync"

	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// SampleProcessor is invoked with every sample of a transformable track
// before it is appended. Returning an error stops that track and becomes the
// job's failure reason unless another track failed first.
type SampleProcessor func(sample *mediatypes.Sample) error

// transfer moves the samples of one track from its reader output to its
// writer input.
type transfer struct {
	job     *Converter
	trackID int
	kind    mediatypes.MediaKind
	output  mediatypes.ReaderOutput
	input   mediatypes.WriterInput
	process SampleProcessor

	appended int
	rejected bool
}

// run pulls samples while the input is ready and waits for its readiness
// signal otherwise. It returns once the track is exhausted, the job is
// cancelled, the processor fails or an append is rejected. The input is
// always marked as finished before wg is released.
func (t *transfer) run(wg *sync.WaitGroup) {
	defer wg.Done()
	defer t.input.MarkAsFinished()

	metrics.ConversionWorkersActive.Inc()
	defer metrics.ConversionWorkersActive.Dec()

	log := t.job.log
	log.Debug("Transfer of %s track %d started", t.kind, t.trackID)

	reason := t.loop()
	log.Debug("Transfer of %s track %d stopped after %d samples: %s", t.kind, t.trackID, t.appended, reason)
}

func (t *transfer) loop() string {
	for {
		if t.job.isCancelled() {
			return "cancelled"
		}
		if !t.input.IsReadyForMoreMediaData() {
			select {
			case <-t.input.Ready():
			case <-t.job.wake:
			}
			continue
		}

		sample := t.output.CopyNextSample()
		if sample == nil {
			return "end of track"
		}

		if t.process != nil {
			if err := t.process(sample); err != nil {
				t.job.recordTransferError(err)
				return "processing failed: " + err.Error()
			}
		}

		if !t.input.Append(sample) {
			t.rejected = true
			return "append rejected"
		}
		t.appended++
		metrics.ConversionSamplesTotal.WithLabelValues(string(t.kind)).Inc()
	}
}
