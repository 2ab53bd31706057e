package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-converter/internal/catalog"
	"media-converter/internal/container"
	"media-converter/internal/handlers"
	"media-converter/internal/jobs"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/startup"

	"github.com/urfave/cli/v2"
)

type fakeJobs struct {
	stats metrics.Stats
}

func (f *fakeJobs) GetStats() metrics.Stats { return f.stats }

type fakeAssets struct {
	n   int
	err error
}

func (f *fakeAssets) Count(context.Context) (int, error) { return f.n, f.err }

func TestStatsAdapter(t *testing.T) {
	t.Run("combines job and asset counts", func(t *testing.T) {
		adapter := &statsAdapter{
			jobs:   &fakeJobs{stats: metrics.Stats{JobsByState: map[string]int{"processing": 2}}},
			assets: &fakeAssets{n: 7},
		}

		var _ metrics.StatsProvider = adapter
		stats := adapter.GetStats()

		if stats.TotalAssets != 7 {
			t.Errorf("TotalAssets = %d, want 7", stats.TotalAssets)
		}
		if stats.JobsByState["processing"] != 2 {
			t.Errorf("JobsByState = %v", stats.JobsByState)
		}
	})

	t.Run("count errors leave assets at zero", func(t *testing.T) {
		adapter := &statsAdapter{jobs: &fakeJobs{}, assets: &fakeAssets{n: 3, err: errors.New("closed")}}
		if got := adapter.GetStats().TotalAssets; got != 0 {
			t.Errorf("TotalAssets = %d, want 0", got)
		}
	})
}

func TestConvertedPath(t *testing.T) {
	tests := []struct {
		source string
		format mediatypes.ContainerFormat
		want   string
	}{
		{"/media/clip.mov", mediatypes.ContainerMOV, "/media/clip-converted.mov"},
		{"/media/clip.mov", mediatypes.ContainerMP4, "/media/clip-converted.mp4"},
		{"song", mediatypes.ContainerM4A, "song-converted.m4a"},
	}

	for _, tt := range tests {
		if got := convertedPath(tt.source, tt.format); got != tt.want {
			t.Errorf("convertedPath(%q, %s) = %q, want %q", tt.source, tt.format, got, tt.want)
		}
	}
}

func TestSetupRouter(t *testing.T) {
	dir := t.TempDir()
	engine := container.New()
	cat, err := catalog.New(context.Background(), filepath.Join(dir, "catalog.db"), engine.OpenAsset)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	defer cat.Close()

	mgr := jobs.NewManager(cat, engine, jobs.Config{OutputDir: dir})
	defer mgr.Shutdown(context.Background())

	router := setupRouter(handlers.New(cat, mgr, &startup.Config{MediaDir: dir, OutputDir: dir}))

	routes, err := startup.GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	found := map[string]bool{}
	for _, r := range routes {
		found[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /version",
		"POST /api/assets",
		"GET /api/assets/{id}/tracks",
		"POST /api/conversions",
		"DELETE /api/conversions/{id}",
		"GET /api/conversions/{id}/output",
		"POST /api/scan",
	} {
		if !found[want] {
			t.Errorf("missing route %s", want)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("0")

	if srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 {
		t.Error("metrics server timeouts should be positive")
	}

	for _, path := range []string{"/metrics", "/health"} {
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func writeClip(t *testing.T, path string) {
	t.Helper()

	video := mediatypes.FormatDescription{Kind: mediatypes.KindVideo, Codec: mediatypes.CodecHEVC, Width: 2, Height: 2}
	audio := mediatypes.FormatDescription{Kind: mediatypes.KindAudio, Codec: "aac", SampleRate: 48000, Channels: 2}

	videoTrack := container.TrackSpec{Kind: mediatypes.KindVideo, Formats: []mediatypes.FormatDescription{video}}
	audioTrack := container.TrackSpec{Kind: mediatypes.KindAudio, Formats: []mediatypes.FormatDescription{audio}}
	for i := 0; i < 4; i++ {
		pts := time.Duration(i) * 40 * time.Millisecond
		vf, af := video, audio
		videoTrack.Samples = append(videoTrack.Samples, mediatypes.Sample{PTS: pts, Data: make([]byte, 2*2*4), Format: &vf})
		audioTrack.Samples = append(audioTrack.Samples, mediatypes.Sample{PTS: pts, Data: []byte{byte(i)}, Format: &af})
	}

	if err := container.Create(path, mediatypes.ContainerMOV, []container.TrackSpec{videoTrack, audioTrack}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

// runApp runs the CLI without letting exit codes terminate the test binary.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"media-converter"}, args...))
	return out.String(), err
}

func TestInspectCommand(t *testing.T) {
	source := filepath.Join(t.TempDir(), "clip.mov")
	writeClip(t, source)

	out, err := runApp(t, "inspect", source)
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 track lines, got %q", out)
	}
	if !strings.Contains(lines[0], "video") || !strings.Contains(lines[0], "hevc 2x2") {
		t.Errorf("video line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "audio") {
		t.Errorf("audio line = %q", lines[1])
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mov")
	writeClip(t, source)
	frameDir := filepath.Join(dir, "frames")

	out, err := runApp(t, "convert", "--format", "mp4", "--capture-frames", frameDir, "--frame-interval", "2", source)
	if err != nil {
		t.Fatalf("convert error = %v (output %q)", err, out)
	}

	output := filepath.Join(dir, "clip-converted.mp4")
	if !strings.Contains(out, "wrote "+output) {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "captured 2 frames") {
		t.Errorf("expected 2 captured frames in %q", out)
	}

	tracks, err := container.New().OpenAsset(output).LoadTracks(context.Background())
	if err != nil {
		t.Fatalf("LoadTracks() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if codec := tracks[0].FormatDescriptions()[0].Codec; codec != mediatypes.CodecH264 {
		t.Errorf("video codec = %q, want h264", codec)
	}

	entries, err := os.ReadDir(frameDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 frame files, got %d", len(entries))
	}
}

func TestConvertCommandErrors(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mov")
	writeClip(t, source)

	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"convert"}},
		{"bad format", []string{"convert", "--format", "avi", source}},
		{"bad codec", []string{"convert", "--codec", "vp9", source}},
		{"missing source", []string{"convert", filepath.Join(dir, "missing.mov")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runApp(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestConvertRefusesSourceAsOutput(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mov")
	writeClip(t, source)
	before, err := os.ReadFile(source)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := runApp(t, "convert", "--output", source, source); err == nil {
		t.Fatal("convert onto the source should fail")
	}

	after, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("source removed: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("source was modified")
	}
}
