package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

var (
	// ErrWriteTimeout indicates a chunk could not be written before its deadline.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates the request context ended mid-stream.
	ErrClientGone = errors.New("client disconnected")
)

// Config controls chunking and per-chunk deadlines.
type Config struct {
	// WriteTimeout bounds each chunk write (0 = no deadline)
	WriteTimeout time.Duration
	// ChunkSize is the largest single write (0 = write as received)
	ChunkSize int
}

// DefaultConfig returns a 30 second deadline per 64KB chunk.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// Writer writes to a response in bounded chunks and flushes after each one.
type Writer struct {
	ctx     context.Context
	w       http.ResponseWriter
	rc      *http.ResponseController
	config  Config
	start   time.Time
	written int64
}

// NewWriter wraps w. Writes fail with ErrClientGone once ctx is done.
func NewWriter(ctx context.Context, w http.ResponseWriter, config Config) *Writer {
	return &Writer{
		ctx:    ctx,
		w:      w,
		rc:     http.NewResponseController(w),
		config: config,
		start:  time.Now(),
	}
}

// Write implements io.Writer.
func (sw *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if sw.ctx.Err() != nil {
			return total, ErrClientGone
		}

		n := len(p)
		if sw.config.ChunkSize > 0 && n > sw.config.ChunkSize {
			n = sw.config.ChunkSize
		}

		if sw.config.WriteTimeout > 0 {
			err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout))
			if err != nil && !errors.Is(err, http.ErrNotSupported) {
				return total, err
			}
		}

		m, err := sw.w.Write(p[:n])
		total += m
		sw.written += int64(m)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return total, ErrWriteTimeout
			}
			return total, err
		}

		if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}

// Stats returns the bytes written so far and the elapsed time.
func (sw *Writer) Stats() (int64, time.Duration) {
	return sw.written, time.Since(sw.start)
}

// ServeFile streams the file at path as an attachment. Errors opening the
// file are returned before any header is written.
func ServeFile(ctx context.Context, w http.ResponseWriter, path, contentType string, config Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	sw := NewWriter(ctx, w, config)
	_, err = io.Copy(sw, f)

	written, duration := sw.Stats()
	metrics.DownloadBytesTotal.Add(float64(written))
	metrics.DownloadsTotal.WithLabelValues(result(err)).Inc()
	logging.Debug("Stream of %s completed: %d bytes in %v", filepath.Base(path), written, duration)

	return err
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrClientGone):
		return "client_gone"
	case errors.Is(err, ErrWriteTimeout):
		return "timeout"
	default:
		return "error"
	}
}
