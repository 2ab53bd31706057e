package handlers

import (
	"time"

	"media-converter/internal/catalog"
	"media-converter/internal/indexer"
	"media-converter/internal/jobs"
	"media-converter/internal/mediatypes"
	"media-converter/internal/startup"
	"media-converter/internal/streaming"
)

// Scanner indexes the media directory on demand.
type Scanner interface {
	TriggerScan() bool
	Status() indexer.Status
}

type Handlers struct {
	catalog      *catalog.Catalog
	jobs         *jobs.Manager
	scanner      Scanner
	streamConfig streaming.Config
	mediaDir     string
	outputDir    string
	format       mediatypes.ContainerFormat
	startTime    time.Time
}

func New(cat *catalog.Catalog, mgr *jobs.Manager, config *startup.Config) *Handlers {
	return &Handlers{
		catalog:      cat,
		jobs:         mgr,
		mediaDir:     config.MediaDir,
		outputDir:    config.OutputDir,
		format:       config.Format,
		streamConfig: streaming.DefaultConfig(),
		startTime:    time.Now(),
	}
}

// SetScanner enables the scan endpoints. Without a scanner they answer 503.
func (h *Handlers) SetScanner(s Scanner) {
	h.scanner = s
}
