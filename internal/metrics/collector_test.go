package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	calls int
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", collector.interval)
	}
	if collector.stopChan == nil {
		t.Error("stopChan should be initialized")
	}
}

func TestCollectorCollect(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			JobsByState: map[string]int{"processing": 2, "finished": 5},
			TotalAssets: 7,
		},
	}

	NewCollector(provider, time.Hour).collect()

	if got := testutil.ToFloat64(JobsByState.WithLabelValues("processing")); got != 2 {
		t.Errorf("processing jobs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(JobsByState.WithLabelValues("finished")); got != 5 {
		t.Errorf("finished jobs = %v, want 5", got)
	}
	if got := testutil.ToFloat64(JobsByState.WithLabelValues("idle")); got != 0 {
		t.Errorf("idle jobs = %v, want 0", got)
	}
	if got := testutil.ToFloat64(CatalogAssetsTotal); got != 7 {
		t.Errorf("catalog assets = %v, want 7", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect panicked with nil provider: %v", r)
		}
	}()
	NewCollector(nil, time.Hour).collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, 10*time.Millisecond)

	collector.Start()
	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	collector.Stop()

	if provider.callCount() < 2 {
		t.Errorf("expected at least 2 collections, got %d", provider.callCount())
	}
}
