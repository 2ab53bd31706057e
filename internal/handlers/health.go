package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-converter/internal/indexer"
	"media-converter/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	TotalAssets int             `json:"totalAssets"`
	Jobs        map[string]int  `json:"jobs"`
	Scan        *indexer.Status `json:"scan,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		Jobs:         h.jobs.GetStats().JobsByState,
	}

	if h.scanner != nil {
		status := h.scanner.Status()
		response.Scan = &status
	}

	total, err := h.catalog.Count(r.Context())
	if err != nil {
		response.Status = statusDegraded
		response.Ready = false
		response.Error = err.Error()
		writeJSONStatus(w, response, http.StatusServiceUnavailable)
		return
	}
	response.TotalAssets = total

	writeJSONStatus(w, response, http.StatusOK)
}

// LivenessCheck is a simple liveness check (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}
