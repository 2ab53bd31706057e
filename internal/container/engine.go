package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-converter/internal/mediatypes"
)

// Engine is the mediatypes.Capability backed by container files.
type Engine struct {
	queueDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueueDepth sets the per-input queue depth of writers.
func WithQueueDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueDepth = n
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{queueDepth: DefaultQueueDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OpenReader returns a reader over asset, which must come from this package.
func (e *Engine) OpenReader(asset mediatypes.Asset) (mediatypes.Reader, error) {
	a, ok := asset.(*Asset)
	if !ok {
		return nil, fmt.Errorf("unsupported asset type %T", asset)
	}
	return NewReader(a), nil
}

// OpenWriter returns a writer for path.
func (e *Engine) OpenWriter(path string, format mediatypes.ContainerFormat) (mediatypes.Writer, error) {
	return NewWriter(path, format, e.queueDepth)
}

// OpenAsset returns a handle to the container at path.
func (e *Engine) OpenAsset(path string) mediatypes.Asset {
	return Open(path)
}

// FileSource resolves asset identifiers as paths relative to Root.
type FileSource struct {
	Root string
}

// RequestAsset returns the container file named by id.
func (s FileSource) RequestAsset(ctx context.Context, id string) (mediatypes.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := id
	if s.Root != "" && !filepath.IsAbs(id) {
		path = filepath.Join(s.Root, id)
		rel, err := filepath.Rel(s.Root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("asset %q is outside %s", id, s.Root)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", id, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("asset %q is a directory", id)
	}
	return Open(path), nil
}
