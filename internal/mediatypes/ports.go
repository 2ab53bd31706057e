package mediatypes

import (
	"context"
	"time"
)

// Track is a read-only track of a source asset.
type Track interface {
	ID() int
	Kind() MediaKind
	// FormatDescriptions returns the declared formats of the track, possibly empty.
	FormatDescriptions() []FormatDescription
}

// Asset is an opaque handle to a container. Its tracks become available once
// LoadTracks returns.
type Asset interface {
	Location() string
	LoadTracks(ctx context.Context) ([]Track, error)
}

// AssetSource resolves asset identifiers to assets.
type AssetSource interface {
	RequestAsset(ctx context.Context, id string) (Asset, error)
}

// ReaderOutput vends the samples of one track.
type ReaderOutput interface {
	Track() Track
	Settings() *ReadSettings
	// CopyNextSample returns the next sample, or nil once the output is exhausted
	// or the reader stopped.
	CopyNextSample() *Sample
}

// Reader demultiplexes an asset.
type Reader interface {
	AddOutput(track Track, settings *ReadSettings) (ReaderOutput, error)
	StartReading() error
	CancelReading()
	Status() Status
	// Err is non-nil when Status is StatusFailed.
	Err() error
}

// WriterInput accepts the samples of one output track.
type WriterInput interface {
	Kind() MediaKind
	// Ready is signalled whenever the input may have capacity for more data.
	Ready() <-chan struct{}
	IsReadyForMoreMediaData() bool
	// Append returns false when the sample was rejected; the writer status then
	// carries the error.
	Append(sample *Sample) bool
	// MarkAsFinished tells the writer no more samples will be appended.
	MarkAsFinished()
}

// Writer multiplexes samples into a new container file.
type Writer interface {
	AvailableMediaKinds() []MediaKind
	AddInput(kind MediaKind, settings *EncodeSettings, hint *FormatDescription) (WriterInput, error)
	StartWriting() error
	StartSession(at time.Duration)
	CancelWriting()
	// FinishWriting finalizes the file once every input is finished. It blocks
	// until the writer reaches a terminal status.
	FinishWriting(ctx context.Context)
	Status() Status
	// Err is non-nil when Status is StatusFailed.
	Err() error
}

// Capability opens readers and writers.
type Capability interface {
	OpenReader(asset Asset) (Reader, error)
	OpenWriter(path string, format ContainerFormat) (Writer, error)
	// OpenAsset returns a handle to a written container at path.
	OpenAsset(path string) Asset
}
