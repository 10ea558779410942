package handlers

import (
	"net/http"
)

// Events upgrades the connection and streams job progress and batch
// events to the client.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

// SystemStats reports runtime pressure numbers for the admin view.
func (h *Handlers) SystemStats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]interface{}{
		"cache_entries":    h.cache.Len(),
		"cache_capacity":   h.cache.Capacity(),
		"active_jobs":      h.orch.Registry().Len(),
		"event_clients":    h.hub.ClientCount(),
		"pressure_percent": h.memMon.Threshold(),
	}
	if used, err := h.memMon.Usage(); err == nil {
		stats["memory_used_percent"] = used
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}
