package container

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"media-converter/internal/mediatypes"
)

// document is the on-disk layout of a container file.
type document struct {
	Format       mediatypes.ContainerFormat `json:"format"`
	SessionStart time.Duration              `json:"sessionStart"`
	Tracks       []trackRecord              `json:"tracks"`
}

type trackRecord struct {
	ID      int                            `json:"id"`
	Kind    mediatypes.MediaKind           `json:"kind"`
	Formats []mediatypes.FormatDescription `json:"formats,omitempty"`
	Samples []sampleRecord                 `json:"samples"`
}

type sampleRecord struct {
	PTS      time.Duration                 `json:"pts"`
	Duration time.Duration                 `json:"duration"`
	Data     []byte                        `json:"data"`
	Format   *mediatypes.FormatDescription `json:"format,omitempty"`
	// Corrupt marks sample data the reader cannot decode.
	Corrupt bool `json:"corrupt,omitempty"`
}

// TrackSpec describes a track to write with Create.
type TrackSpec struct {
	ID      int
	Kind    mediatypes.MediaKind
	Formats []mediatypes.FormatDescription
	Samples []mediatypes.Sample
	// CorruptAt lists sample indexes the reader must fail on.
	CorruptAt []int
}

// Create writes a container file at path. It fails if the file exists.
func Create(path string, format mediatypes.ContainerFormat, tracks []TrackSpec) error {
	doc := document{Format: format}
	for i, spec := range tracks {
		id := spec.ID
		if id == 0 {
			id = i + 1
		}
		corrupt := make(map[int]bool, len(spec.CorruptAt))
		for _, idx := range spec.CorruptAt {
			corrupt[idx] = true
		}
		rec := trackRecord{ID: id, Kind: spec.Kind, Formats: spec.Formats}
		for j, s := range spec.Samples {
			rec.Samples = append(rec.Samples, sampleRecord{
				PTS:      s.PTS,
				Duration: s.Duration,
				Data:     s.Data,
				Format:   s.Format,
				Corrupt:  corrupt[j],
			})
		}
		doc.Tracks = append(doc.Tracks, rec)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := writeDocument(f, &doc); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func writeDocument(f *os.File, doc *document) error {
	enc := json.NewEncoder(f)
	if err := enc.Encode(doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode container: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync container: %w", err)
	}
	return f.Close()
}

// Asset is a container file whose tracks load on demand.
type Asset struct {
	path string

	mu     sync.Mutex
	doc    *document
	tracks []*Track
}

// Open returns an asset handle for path. Nothing is read until LoadTracks.
func Open(path string) *Asset {
	return &Asset{path: path}
}

// Location returns the file path of the asset.
func (a *Asset) Location() string {
	return a.path
}

// Format returns the container format recorded in the file, loading it if needed.
func (a *Asset) Format(ctx context.Context) (mediatypes.ContainerFormat, error) {
	doc, _, err := a.load(ctx)
	if err != nil {
		return "", err
	}
	return doc.Format, nil
}

// LoadTracks reads the container and returns its tracks in file order.
// A failed or cancelled load may be retried.
func (a *Asset) LoadTracks(ctx context.Context) ([]mediatypes.Track, error) {
	_, tracks, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]mediatypes.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t
	}
	return out, nil
}

// Tracks returns the concrete tracks of the asset.
func (a *Asset) Tracks(ctx context.Context) ([]*Track, error) {
	_, tracks, err := a.load(ctx)
	return tracks, err
}

func (a *Asset) load(ctx context.Context) (*document, []*Track, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.doc != nil {
		return a.doc, a.tracks, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read container %s: %w", a.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse container %s: %w", a.path, err)
	}
	if len(doc.Tracks) == 0 {
		return nil, nil, errors.New("container has no tracks")
	}

	tracks := make([]*Track, len(doc.Tracks))
	for i := range doc.Tracks {
		tracks[i] = &Track{asset: a, rec: &doc.Tracks[i]}
	}
	a.doc = &doc
	a.tracks = tracks
	return a.doc, a.tracks, nil
}

// Track is one track of an Asset.
type Track struct {
	asset *Asset
	rec   *trackRecord
}

// ID returns the track identifier.
func (t *Track) ID() int {
	return t.rec.ID
}

// Kind returns the media kind of the track.
func (t *Track) Kind() mediatypes.MediaKind {
	return t.rec.Kind
}

// FormatDescriptions returns a copy of the declared formats.
func (t *Track) FormatDescriptions() []mediatypes.FormatDescription {
	out := make([]mediatypes.FormatDescription, len(t.rec.Formats))
	copy(out, t.rec.Formats)
	return out
}

// SampleCount returns the number of samples stored in the track.
func (t *Track) SampleCount() int {
	return len(t.rec.Samples)
}

// Samples returns copies of the stored samples in order.
func (t *Track) Samples() []mediatypes.Sample {
	out := make([]mediatypes.Sample, len(t.rec.Samples))
	for i, s := range t.rec.Samples {
		out[i] = t.sample(s, s.Format)
	}
	return out
}

func (t *Track) sample(s sampleRecord, format *mediatypes.FormatDescription) mediatypes.Sample {
	data := make([]byte, len(s.Data))
	copy(data, s.Data)
	return mediatypes.Sample{
		TrackID:  t.rec.ID,
		PTS:      s.PTS,
		Duration: s.Duration,
		Data:     data,
		Format:   format,
	}
}
