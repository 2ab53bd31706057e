package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/streaming"

	"github.com/gorilla/mux"
)

// SubmitConversion validates the asset and queues a conversion job
func (h *Handlers) SubmitConversion(w http.ResponseWriter, r *http.Request) {
	var req jobs.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AssetID == "" {
		writeJSONError(w, "assetId is required", http.StatusBadRequest)
		return
	}

	if _, err := h.catalog.Get(r.Context(), req.AssetID); err != nil {
		writeCatalogError(w, err)
		return
	}

	if req.Output != "" {
		output, err := resolveUnder(h.outputDir, req.Output)
		if err != nil {
			writeJSONError(w, "output: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Output = output
	}

	status, err := h.jobs.Submit(req)
	switch {
	case errors.Is(err, jobs.ErrOutputBusy):
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, jobs.ErrShuttingDown):
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Location", "/api/conversions/"+status.ID)
	writeJSONStatus(w, status, http.StatusAccepted)
}

// ListConversions returns every job in submission order
func (h *Handlers) ListConversions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.jobs.List())
}

// GetConversion returns the status of a job
func (h *Handlers) GetConversion(w http.ResponseWriter, r *http.Request) {
	status, err := h.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, status)
}

// CancelConversion requests cancellation of a job. The job reports its
// outcome asynchronously; the response carries the status at the time of
// the request.
func (h *Handlers) CancelConversion(w http.ResponseWriter, r *http.Request) {
	status, err := h.jobs.Cancel(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}

	writeJSONStatus(w, status, http.StatusAccepted)
}

var outputContentTypes = map[string]string{
	".mov": "video/quicktime",
	".mp4": "video/mp4",
	".m4a": "audio/mp4",
}

// DownloadConversion streams the output of a successful job
func (h *Handlers) DownloadConversion(w http.ResponseWriter, r *http.Request) {
	status, err := h.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}
	if status.Outcome != "success" {
		writeJSONError(w, "Conversion has no output", http.StatusConflict)
		return
	}

	contentType, ok := outputContentTypes[strings.ToLower(filepath.Ext(status.OutputPath))]
	if !ok {
		contentType = "application/octet-stream"
	}

	err = streaming.ServeFile(r.Context(), w, status.OutputPath, contentType, h.streamConfig)
	switch {
	case err == nil, errors.Is(err, streaming.ErrClientGone):
	case errors.Is(err, fs.ErrNotExist):
		writeJSONError(w, "Output file no longer exists", http.StatusGone)
	default:
		logging.Warn("Download of %s failed: %v", status.OutputPath, err)
	}
}

func writeJobError(w http.ResponseWriter, err error) {
	if errors.Is(err, jobs.ErrJobNotFound) {
		writeJSONError(w, "Conversion not found", http.StatusNotFound)
		return
	}
	writeJSONError(w, err.Error(), http.StatusInternalServerError)
}
