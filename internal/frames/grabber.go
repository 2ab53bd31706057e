package frames

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// ErrMalformedFrame is returned for frames whose data cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// Config controls which frames are captured and how they are stored.
type Config struct {
	// Dir receives the captured stills.
	Dir string
	// Interval captures every Nth frame. Values below 1 capture every frame.
	Interval int
	// Angle rotates stills counter-clockwise, in degrees.
	Angle float64
	// MaxSize bounds the width and height of stills. Zero keeps full size.
	MaxSize int
}

// Frame describes a captured still.
type Frame struct {
	Index   int           `json:"index"`
	TrackID int           `json:"trackId"`
	PTS     time.Duration `json:"pts"`
	Path    string        `json:"path"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
}

// Grabber captures stills from decoded video samples. It is safe for use by
// several transfers at once.
type Grabber struct {
	cfg Config

	mu     sync.Mutex
	seen   int
	frames []Frame
}

// New creates a Grabber, creating cfg.Dir if needed.
func New(cfg Config) (*Grabber, error) {
	if cfg.Dir == "" {
		return nil, errors.New("frame directory is required")
	}
	if cfg.Interval < 1 {
		cfg.Interval = 1
	}
	cfg.Angle = normalizeAngle(cfg.Angle)
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	return &Grabber{cfg: cfg}, nil
}

// Process validates a decoded video sample and captures it when it falls on
// the configured interval. Its signature matches converter.SampleProcessor.
func (g *Grabber) Process(sample *mediatypes.Sample) error {
	img, err := decode(sample)
	if err != nil {
		metrics.FramesCapturedTotal.WithLabelValues("error").Inc()
		return err
	}

	g.mu.Lock()
	index := g.seen
	g.seen++
	g.mu.Unlock()

	if index%g.cfg.Interval != 0 {
		return nil
	}

	still := g.transform(img)
	path := filepath.Join(g.cfg.Dir, fmt.Sprintf("track%d-frame%06d.png", sample.TrackID, index))
	if err := imaging.Save(still, path); err != nil {
		metrics.FramesCapturedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("save frame %d: %w", index, err)
	}
	metrics.FramesCapturedTotal.WithLabelValues("success").Inc()

	bounds := still.Bounds()
	frame := Frame{
		Index:   index,
		TrackID: sample.TrackID,
		PTS:     sample.PTS,
		Path:    path,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}
	logging.Debug("Captured frame %d of track %d at %v: %s", index, sample.TrackID, sample.PTS, path)

	g.mu.Lock()
	g.frames = append(g.frames, frame)
	g.mu.Unlock()
	return nil
}

// Frames returns the captured stills in capture order.
func (g *Grabber) Frames() []Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Frame, len(g.frames))
	copy(out, g.frames)
	return out
}

func (g *Grabber) transform(img *image.NRGBA) image.Image {
	var out image.Image = img
	switch g.cfg.Angle {
	case 0:
	case 90:
		out = imaging.Rotate90(img)
	case 180:
		out = imaging.Rotate180(img)
	case 270:
		out = imaging.Rotate270(img)
	default:
		out = imaging.Rotate(img, g.cfg.Angle, color.Transparent)
	}
	if g.cfg.MaxSize > 0 {
		out = imaging.Fit(out, g.cfg.MaxSize, g.cfg.MaxSize, imaging.Lanczos)
	}
	return out
}

func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}

// MaxDimension bounds frame width and height so the pixel buffer size
// cannot overflow.
const MaxDimension = 1 << 15

// decode converts packed 32-bit pixels to an NRGBA image.
func decode(sample *mediatypes.Sample) (*image.NRGBA, error) {
	if sample == nil || sample.Format == nil {
		return nil, fmt.Errorf("%w: no format description", ErrMalformedFrame)
	}
	f := sample.Format
	if f.Width <= 0 || f.Height <= 0 || f.Width > MaxDimension || f.Height > MaxDimension {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrMalformedFrame, f.Width, f.Height)
	}

	var order [4]int // source offsets of R, G, B, A
	switch f.PixelFormat {
	case mediatypes.PixelFormatARGB32:
		order = [4]int{1, 2, 3, 0}
	case mediatypes.PixelFormatBGRA32:
		order = [4]int{2, 1, 0, 3}
	default:
		return nil, fmt.Errorf("%w: unsupported pixel format %q", ErrMalformedFrame, f.PixelFormat)
	}

	want := f.Width * f.Height * 4
	if len(sample.Data) != want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d, want %d", ErrMalformedFrame, len(sample.Data), f.Width, f.Height, want)
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		src := sample.Data[i*4 : i*4+4]
		dst := img.Pix[i*4 : i*4+4]
		dst[0] = src[order[0]]
		dst[1] = src[order[1]]
		dst[2] = src[order[2]]
		dst[3] = src[order[3]]
	}
	return img, nil
}
