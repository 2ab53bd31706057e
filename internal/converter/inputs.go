package converter

import (
	"context"
	"fmt"
	"time"

	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// inspectFormats discovers the native sample format of each transformable
// track. It reads from a throwaway reader over the same asset so the primary
// reader's samples are not consumed. The shadow reader is cancelled on every
// return path.
func (c *Converter) inspectFormats(ctx context.Context, asset mediatypes.Asset, tracks []mediatypes.Track) ([]*mediatypes.FormatDescription, error) {
	if len(tracks) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		metrics.FormatInspectDuration.Observe(time.Since(start).Seconds())
	}()

	shadow, err := c.capability.OpenReader(asset)
	if err != nil {
		return nil, c.newError(ErrReaderStartFailed, "inspect format", err)
	}
	defer shadow.CancelReading()

	outputs := make([]mediatypes.ReaderOutput, len(tracks))
	for i, track := range tracks {
		out, err := shadow.AddOutput(track, c.readSettings)
		if err != nil {
			return nil, c.newError(ErrReaderStartFailed, "inspect format", err)
		}
		outputs[i] = out
	}
	if err := shadow.StartReading(); err != nil {
		return nil, c.newError(ErrReaderStartFailed, "inspect format", err)
	}

	hints := make([]*mediatypes.FormatDescription, len(tracks))
	for i, out := range outputs {
		for {
			if err := ctx.Err(); err != nil {
				return nil, c.newError(ErrNoMediaData, "inspect format", err)
			}
			sample := out.CopyNextSample()
			if sample == nil {
				return nil, c.newError(ErrNoMediaData, "inspect format",
					fmt.Errorf("track %d has no samples with a format description", tracks[i].ID()))
			}
			if sample.Format != nil {
				hint := *sample.Format
				hints[i] = &hint
				c.log.Debug("Inspected track %d: %s", tracks[i].ID(), hint)
				break
			}
		}
	}
	return hints, nil
}

// passthroughHint returns the first declared format of track.
func (c *Converter) passthroughHint(track mediatypes.Track) (*mediatypes.FormatDescription, error) {
	formats := track.FormatDescriptions()
	if len(formats) == 0 {
		return nil, c.newError(ErrNoMediaData, "passthrough",
			fmt.Errorf("%s track %d has no format description", track.Kind(), track.ID()))
	}
	hint := formats[0]
	return &hint, nil
}

// wire creates the reader output and writer input for every classified track,
// video first. It returns one transfer per pair.
func (c *Converter) wire(ctx context.Context, asset mediatypes.Asset, reader mediatypes.Reader, writer mediatypes.Writer, buckets Buckets) ([]*transfer, error) {
	hints, err := c.inspectFormats(ctx, asset, buckets.Transformable)
	if err != nil {
		return nil, err
	}

	passHints := make([]*mediatypes.FormatDescription, len(buckets.Passthrough))
	for i, track := range buckets.Passthrough {
		if passHints[i], err = c.passthroughHint(track); err != nil {
			return nil, err
		}
	}

	transfers := make([]*transfer, 0, buckets.Len())
	for i, track := range buckets.Transformable {
		t, err := c.pair(reader, writer, track, c.readSettings, c.encodeSettings, hints[i])
		if err != nil {
			return nil, err
		}
		t.process = c.processor
		transfers = append(transfers, t)
	}
	for i, track := range buckets.Passthrough {
		t, err := c.pair(reader, writer, track, nil, nil, passHints[i])
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}

	metrics.ConversionTracksTotal.WithLabelValues("transform").Add(float64(len(buckets.Transformable)))
	metrics.ConversionTracksTotal.WithLabelValues("passthrough").Add(float64(len(buckets.Passthrough)))
	return transfers, nil
}

func (c *Converter) pair(reader mediatypes.Reader, writer mediatypes.Writer, track mediatypes.Track,
	read *mediatypes.ReadSettings, encode *mediatypes.EncodeSettings, hint *mediatypes.FormatDescription) (*transfer, error) {
	out, err := reader.AddOutput(track, read)
	if err != nil {
		return nil, c.newError(ErrReaderStartFailed, "add output", err)
	}
	in, err := writer.AddInput(track.Kind(), encode, hint)
	if err != nil {
		return nil, c.newError(ErrWriterStartFailed, "add input", err)
	}
	c.log.Debug("Wired %s track %d (hint %s)", track.Kind(), track.ID(), hint)
	return &transfer{
		job:     c,
		trackID: track.ID(),
		kind:    track.Kind(),
		output:  out,
		input:   in,
	}, nil
}
