package handlers

import (
	"net/http"

	"ghosthub/internal/startup"
)

// VersionInfo returns build information
func (h *Handlers) VersionInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, startup.GetBuildInfo())
}
