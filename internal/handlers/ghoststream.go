package handlers

import (
	"net/http"

	"ghosthub/internal/ghoststream"
)

// GhostStreamStatusResponse summarizes the remote service state.
type GhostStreamStatusResponse struct {
	Enabled      bool                      `json:"enabled"`
	Configured   bool                      `json:"configured"`
	Healthy      bool                      `json:"healthy"`
	URL          string                    `json:"url,omitempty"`
	Capabilities *ghoststream.Capabilities `json:"capabilities,omitempty"`
}

// GhostStreamStatus reports whether the transcoding service is
// configured, reachable, and what it can do.
func (h *Handlers) GhostStreamStatus(w http.ResponseWriter, r *http.Request) {
	response := GhostStreamStatusResponse{
		Enabled:    h.client.Enabled(),
		Configured: h.client.BaseURL() != "",
		Healthy:    h.client.Available(),
		URL:        h.client.BaseURL(),
	}

	if response.Healthy {
		if caps, err := h.client.Capabilities(r.Context()); err == nil {
			response.Capabilities = caps
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// GhostStreamTest actively probes the remote service and refreshes the
// cached health flag.
func (h *Handlers) GhostStreamTest(w http.ResponseWriter, r *http.Request) {
	healthy := h.client.RefreshHealth(r.Context())

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"reachable": healthy,
		"url":       h.client.BaseURL(),
	})
}
