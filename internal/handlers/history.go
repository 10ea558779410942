package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"ghosthub/internal/history"
)

// RecentHistory returns the latest job lifecycle events.
func (h *Handlers) RecentHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeJSONError(w, "failed to read history", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []history.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"events": events})
}

// JobHistory returns the lifecycle of one job.
func (h *Handlers) JobHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.history.JobEvents(r.Context(), mux.Vars(r)["jobId"])
	if err != nil {
		writeJSONError(w, "failed to read job history", http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		writeJSONError(w, "no history for job", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"events": events})
}

// HistoryStats summarizes the event log.
func (h *Handlers) HistoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats(r.Context())
	if err != nil {
		writeJSONError(w, "failed to read history stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}
