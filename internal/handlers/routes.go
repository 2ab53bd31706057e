package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every handler on r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Assets
	api.HandleFunc("/assets", h.ListAssets).Methods("GET")
	api.HandleFunc("/assets", h.RegisterAsset).Methods("POST")
	api.HandleFunc("/assets/{id}", h.GetAsset).Methods("GET")
	api.HandleFunc("/assets/{id}", h.DeleteAsset).Methods("DELETE")
	api.HandleFunc("/assets/{id}/tracks", h.GetAssetTracks).Methods("GET")

	// Media directory scans
	api.HandleFunc("/scan", h.GetScanStatus).Methods("GET")
	api.HandleFunc("/scan", h.TriggerScan).Methods("POST")

	// Conversions
	api.HandleFunc("/conversions", h.ListConversions).Methods("GET")
	api.HandleFunc("/conversions", h.SubmitConversion).Methods("POST")
	api.HandleFunc("/conversions/{id}", h.GetConversion).Methods("GET")
	api.HandleFunc("/conversions/{id}", h.CancelConversion).Methods("DELETE")
	api.HandleFunc("/conversions/{id}/output", h.DownloadConversion).Methods("GET")
}
