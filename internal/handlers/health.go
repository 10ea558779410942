package handlers

import (
	"net/http"
	"runtime"
	"time"

	"ghosthub/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Transcoding service state
	TranscodingEnabled bool `json:"transcodingEnabled"`
	TranscodingHealthy bool `json:"transcodingHealthy"`
	ActiveJobs         int  `json:"activeJobs"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. Transcoding
// being down degrades the status but never fails the probe: the server
// still serves originals.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:             statusHealthy,
		Version:            startup.Version,
		Uptime:             time.Since(h.startedAt).Round(time.Second).String(),
		TranscodingEnabled: h.client.Enabled(),
		TranscodingHealthy: h.client.Available(),
		ActiveJobs:         h.orch.Registry().Len(),
		GoVersion:          runtime.Version(),
		NumCPU:             runtime.NumCPU(),
		NumGoroutine:       runtime.NumGoroutine(),
	}

	if h.client.Enabled() && !h.client.Available() {
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if the
// server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "alive")
}

// ReadinessCheck reports whether the server can take traffic. The
// history store is the only hard dependency; everything else degrades.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.history.Stats(r.Context()); err != nil {
		writeJSONError(w, "history store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, "ready")
}
