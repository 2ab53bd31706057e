package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"media-converter/internal/container"
	"media-converter/internal/mediatypes"
)

func setupTestCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()

	dir := t.TempDir()
	c, err := New(context.Background(), filepath.Join(dir, "catalog.db"), container.New().OpenAsset)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return c, dir
}

func createContainer(t *testing.T, dir, name string, kinds ...mediatypes.MediaKind) string {
	t.Helper()

	var tracks []container.TrackSpec
	for _, kind := range kinds {
		tracks = append(tracks, container.TrackSpec{
			Kind:    kind,
			Formats: []mediatypes.FormatDescription{{Kind: kind, Codec: "test"}},
		})
	}
	path := filepath.Join(dir, name)
	if err := container.Create(path, mediatypes.ContainerMOV, tracks); err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return path
}

func TestRegisterAndGet(t *testing.T) {
	c, dir := setupTestCatalog(t)
	ctx := context.Background()
	path := createContainer(t, dir, "clip.mvc", mediatypes.KindVideo, mediatypes.KindAudio)

	asset, err := c.Register(ctx, path)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if asset.ID == "" {
		t.Error("Register() returned empty ID")
	}
	if asset.Name != "clip.mvc" {
		t.Errorf("Name = %q, want clip.mvc", asset.Name)
	}
	if asset.TrackCount != 2 {
		t.Errorf("TrackCount = %d, want 2", asset.TrackCount)
	}
	if asset.Size == 0 {
		t.Error("Size = 0, want file size")
	}

	got, err := c.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Path != path {
		t.Errorf("Path = %q, want %q", got.Path, path)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	c, dir := setupTestCatalog(t)
	ctx := context.Background()
	path := createContainer(t, dir, "clip.mvc", mediatypes.KindAudio)

	first, err := c.Register(ctx, path)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	second, err := c.Register(ctx, path)
	if err != nil {
		t.Fatalf("second Register() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("re-registering changed ID from %s to %s", first.ID, second.ID)
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestRegisterErrors(t *testing.T) {
	c, dir := setupTestCatalog(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "bad.mvc"), []byte("not a container"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.mvc")},
		{"directory", dir},
		{"malformed container", filepath.Join(dir, "bad.mvc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Register(ctx, tt.path); err == nil {
				t.Error("Register() expected error")
			}
		})
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestListOrdersByName(t *testing.T) {
	c, dir := setupTestCatalog(t)
	ctx := context.Background()

	for _, name := range []string{"b.mvc", "C.mvc", "a.mvc"} {
		if _, err := c.Register(ctx, createContainer(t, dir, name, mediatypes.KindAudio)); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	assets, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a.mvc", "b.mvc", "C.mvc"}
	if len(assets) != len(want) {
		t.Fatalf("List() returned %d assets, want %d", len(assets), len(want))
	}
	for i, a := range assets {
		if a.Name != want[i] {
			t.Errorf("assets[%d].Name = %q, want %q", i, a.Name, want[i])
		}
	}
}

func TestListEmpty(t *testing.T) {
	c, _ := setupTestCatalog(t)

	assets, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if assets == nil || len(assets) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", assets)
	}
}

func TestDelete(t *testing.T) {
	c, dir := setupTestCatalog(t)
	ctx := context.Background()
	path := createContainer(t, dir, "clip.mvc", mediatypes.KindAudio)

	asset, err := c.Register(ctx, path)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := c.Delete(ctx, asset.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, asset.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := c.Delete(ctx, asset.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Delete() removed the file: %v", err)
	}
}

func TestRequestAsset(t *testing.T) {
	c, dir := setupTestCatalog(t)
	ctx := context.Background()
	path := createContainer(t, dir, "clip.mvc", mediatypes.KindVideo, mediatypes.KindAudio)

	registered, err := c.Register(ctx, path)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	asset, err := c.RequestAsset(ctx, registered.ID)
	if err != nil {
		t.Fatalf("RequestAsset() error = %v", err)
	}
	if asset.Location() != path {
		t.Errorf("Location() = %q, want %q", asset.Location(), path)
	}
	tracks, err := asset.LoadTracks(ctx)
	if err != nil {
		t.Fatalf("LoadTracks() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("LoadTracks() returned %d tracks, want 2", len(tracks))
	}

	if _, err := c.RequestAsset(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RequestAsset(unknown) error = %v, want ErrNotFound", err)
	}
}
