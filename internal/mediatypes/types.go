package mediatypes

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MediaKind identifies the type of media carried by a track.
type MediaKind string

const (
	// KindVideo is a video track.
	KindVideo MediaKind = "video"
	// KindAudio is an audio track.
	KindAudio MediaKind = "audio"
	// KindSubtitle is a subtitle track.
	KindSubtitle MediaKind = "subtitle"
	// KindText is a timed text track.
	KindText MediaKind = "text"
	// KindTimecode is a timecode track.
	KindTimecode MediaKind = "timecode"
	// KindMetadata is a timed metadata track.
	KindMetadata MediaKind = "metadata"
)

// ContainerFormat names a destination container file type.
type ContainerFormat string

const (
	// ContainerMOV is a QuickTime movie.
	ContainerMOV ContainerFormat = "mov"
	// ContainerMP4 is an MPEG-4 file.
	ContainerMP4 ContainerFormat = "mp4"
	// ContainerM4A is an audio-only MPEG-4 file.
	ContainerM4A ContainerFormat = "m4a"
)

// containerKinds maps container formats to the media kinds they accept.
var containerKinds = map[ContainerFormat][]MediaKind{
	ContainerMOV: {KindVideo, KindAudio, KindSubtitle, KindText, KindTimecode, KindMetadata},
	ContainerMP4: {KindVideo, KindAudio, KindSubtitle, KindText},
	ContainerM4A: {KindAudio},
}

// ContainerExtensions maps container formats to their file extensions.
var ContainerExtensions = map[ContainerFormat]string{
	ContainerMOV: ".mov",
	ContainerMP4: ".mp4",
	ContainerM4A: ".m4a",
}

// ParseContainerFormat parses a container name such as "mov" or ".mp4".
func ParseContainerFormat(s string) (ContainerFormat, error) {
	f := ContainerFormat(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if _, ok := containerKinds[f]; !ok {
		return "", fmt.Errorf("unsupported container format %q", s)
	}
	return f, nil
}

// IsContainerFile reports whether the file name carries a known container extension.
func IsContainerFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ContainerExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// AvailableKinds returns the media kinds the container accepts.
// Returns nil for unknown formats.
func (f ContainerFormat) AvailableKinds() []MediaKind {
	kinds := containerKinds[f]
	out := make([]MediaKind, len(kinds))
	copy(out, kinds)
	return out
}

// Accepts reports whether the container can hold tracks of the given kind.
func (f ContainerFormat) Accepts(kind MediaKind) bool {
	for _, k := range containerKinds[f] {
		if k == kind {
			return true
		}
	}
	return false
}

// Extension returns the file extension for the container, including the dot.
func (f ContainerFormat) Extension() string {
	if ext, ok := ContainerExtensions[f]; ok {
		return ext
	}
	return "." + string(f)
}

// Pixel formats produced by decoding reader outputs.
const (
	PixelFormatARGB32 = "32ARGB"
	PixelFormatBGRA32 = "32BGRA"
)

// Codecs used in format descriptions and encode settings.
const (
	CodecH264 = "h264"
	CodecHEVC = "hevc"
	CodecRaw  = "raw"
)

// FormatDescription describes the layout of samples in a track. It is the
// format hint handed to a writer input before any sample is seen.
type FormatDescription struct {
	Kind        MediaKind `json:"kind"`
	Codec       string    `json:"codec"`
	PixelFormat string    `json:"pixelFormat,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	SampleRate  int       `json:"sampleRate,omitempty"`
	Channels    int       `json:"channels,omitempty"`
	Language    string    `json:"language,omitempty"`
}

// String returns a compact human-readable form of the description.
func (d FormatDescription) String() string {
	switch d.Kind {
	case KindVideo:
		if d.PixelFormat != "" {
			return fmt.Sprintf("%s %s %dx%d", d.Codec, d.PixelFormat, d.Width, d.Height)
		}
		return fmt.Sprintf("%s %dx%d", d.Codec, d.Width, d.Height)
	case KindAudio:
		return fmt.Sprintf("%s %dHz %dch", d.Codec, d.SampleRate, d.Channels)
	default:
		if d.Language != "" {
			return fmt.Sprintf("%s (%s)", d.Codec, d.Language)
		}
		return d.Codec
	}
}

// Sample is one timestamped unit of media data.
type Sample struct {
	TrackID  int
	PTS      time.Duration
	Duration time.Duration
	Data     []byte
	// Format is nil when the sample carries no format description.
	Format *FormatDescription
}

// ReadSettings configures decompression for a reader output.
// A nil *ReadSettings means passthrough.
type ReadSettings struct {
	PixelFormat string
}

// EncodeSettings configures re-encoding for a writer input.
// A nil *EncodeSettings means the output mirrors the input exactly.
type EncodeSettings struct {
	Codec string
	// BitRate in bits per second; 0 lets the writer choose.
	BitRate int64
}

// Status is the lifecycle status of a Reader or Writer.
type Status int

const (
	// StatusUnknown is the status before reading or writing starts.
	StatusUnknown Status = iota
	// StatusReading is the status of a started reader.
	StatusReading
	// StatusWriting is the status of a started writer.
	StatusWriting
	// StatusCompleted means every sample was read or the file was finalized.
	StatusCompleted
	// StatusFailed means the reader or writer stopped on an error.
	StatusFailed
	// StatusCancelled means the reader or writer was cancelled.
	StatusCancelled
)

// String returns the string representation of a status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusReading:
		return "reading"
	case StatusWriting:
		return "writing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
