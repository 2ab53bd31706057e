package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-converter/internal/catalog"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"

	"github.com/gorilla/mux"
)

// RegisterRequest names a file under the media directory.
type RegisterRequest struct {
	Path string `json:"path"`
}

// TrackInfo describes one track of an asset.
type TrackInfo struct {
	ID      int                            `json:"id"`
	Kind    mediatypes.MediaKind           `json:"kind"`
	Formats []mediatypes.FormatDescription `json:"formats"`
}

// RegisterAsset adds a file from the media directory to the catalog
func (h *Handlers) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	path, err := resolveUnder(h.mediaDir, req.Path)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	asset, err := h.catalog.Register(r.Context(), path)
	if err != nil {
		logging.Warn("Failed to register asset %s: %v", path, err)
		writeJSONError(w, "Failed to register asset: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSONStatus(w, asset, http.StatusCreated)
}

// ListAssets returns every registered asset
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.catalog.List(r.Context())
	if err != nil {
		writeJSONError(w, "Failed to list assets", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, assets)
}

// GetAsset returns a single asset
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, asset)
}

// DeleteAsset removes an asset from the catalog. The file itself is left alone.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAssetTracks loads and describes the tracks of an asset
func (h *Handlers) GetAssetTracks(w http.ResponseWriter, r *http.Request) {
	asset, err := h.catalog.RequestAsset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	tracks, err := asset.LoadTracks(r.Context())
	if err != nil {
		writeJSONError(w, "Failed to load tracks: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	infos := make([]TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		formats := t.FormatDescriptions()
		if formats == nil {
			formats = []mediatypes.FormatDescription{}
		}
		infos = append(infos, TrackInfo{ID: t.ID(), Kind: t.Kind(), Formats: formats})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, infos)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSONError(w, "Asset not found", http.StatusNotFound)
		return
	}
	logging.Error("Catalog error: %v", err)
	writeJSONError(w, "Catalog error", http.StatusInternalServerError)
}
