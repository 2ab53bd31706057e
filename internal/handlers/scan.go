package handlers

import (
	"net/http"

	"media-converter/internal/indexer"
)

// TriggerScan starts a background scan of the media directory.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeJSONError(w, "scanning is not enabled", http.StatusServiceUnavailable)
		return
	}
	if !h.scanner.TriggerScan() {
		writeJSONError(w, indexer.ErrScanInProgress.Error(), http.StatusConflict)
		return
	}
	writeJSONStatus(w, h.scanner.Status(), http.StatusAccepted)
}

// GetScanStatus returns the state of the last scan.
func (h *Handlers) GetScanStatus(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeJSONError(w, "scanning is not enabled", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, h.scanner.Status(), http.StatusOK)
}
