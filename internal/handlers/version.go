package handlers

import (
	"net/http"
	"sort"

	"media-converter/internal/mediatypes"
	"media-converter/internal/startup"
)

// VersionResponse is the build information plus what this build can produce.
type VersionResponse struct {
	startup.BuildInfo
	Containers []string `json:"containers"`
	Codecs     []string `json:"codecs"`
	Output     string   `json:"output"`
}

// GetVersion returns the application version, build information and the
// supported output containers and video codecs
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	containers := make([]string, 0, len(mediatypes.ContainerExtensions))
	for f := range mediatypes.ContainerExtensions {
		containers = append(containers, string(f))
	}
	sort.Strings(containers)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, VersionResponse{
		BuildInfo:  startup.GetBuildInfo(),
		Containers: containers,
		Codecs:     []string{mediatypes.CodecH264, mediatypes.CodecHEVC},
		Output:     string(h.format),
	})
}
