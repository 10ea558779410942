package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"ghosthub/internal/ghoststream"
	"ghosthub/internal/transcode"
)

// transcodeRequest is the body shared by the start and playback
// endpoints.
type transcodeRequest struct {
	CategoryID string  `json:"category_id"`
	Filename   string  `json:"filename"`
	Mode       string  `json:"mode,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	Bitrate    string  `json:"bitrate,omitempty"`
	StartTime  float64 `json:"start_time,omitempty"`
	ToneMap    bool    `json:"tone_map,omitempty"`
	TwoPass    bool    `json:"two_pass,omitempty"`
	Force      bool    `json:"force,omitempty"`
	TimeoutSec int     `json:"timeout_seconds,omitempty"`
}

func (req *transcodeRequest) identity() transcode.MediaIdentity {
	return transcode.MediaIdentity{CategoryID: req.CategoryID, Filename: req.Filename}
}

func (req *transcodeRequest) options(h *Handlers) transcode.Options {
	opts := transcode.Options{
		Mode:        ghoststream.Mode(req.Mode),
		Resolution:  req.Resolution,
		VideoCodec:  req.VideoCodec,
		AudioCodec:  req.AudioCodec,
		Bitrate:     req.Bitrate,
		StartTime:   req.StartTime,
		ToneMap:     req.ToneMap,
		TwoPass:     req.TwoPass,
		Force:       req.Force,
		WaitTimeout: h.config.WaitTimeout,
	}
	if opts.Resolution == "" {
		opts.Resolution = h.config.DefaultResolution
	}
	if opts.VideoCodec == "" {
		opts.VideoCodec = h.config.DefaultVideoCodec
	}
	if req.TimeoutSec > 0 {
		opts.WaitTimeout = time.Duration(req.TimeoutSec) * time.Second
	}
	return opts
}

func (req *transcodeRequest) validate(h *Handlers) (int, string) {
	if req.CategoryID == "" || req.Filename == "" {
		return http.StatusBadRequest, "category_id and filename are required"
	}
	if _, err := h.categories.ByID(req.CategoryID); err != nil {
		return http.StatusNotFound, "unknown category"
	}
	switch ghoststream.Mode(req.Mode) {
	case "", ghoststream.ModeStream, ghoststream.ModeABR, ghoststream.ModeBatch:
	default:
		return http.StatusBadRequest, "mode must be stream, abr, or batch"
	}
	return 0, ""
}

// mediaURL builds the URL the remote service fetches originals from.
func (h *Handlers) mediaURL(identity transcode.MediaIdentity) string {
	return h.config.PublicBaseURL + "/media/" +
		url.PathEscape(identity.CategoryID) + "/" + url.PathEscape(identity.Filename)
}

// StartTranscode starts (or reuses) a transcode job for one file.
func (h *Handlers) StartTranscode(w http.ResponseWriter, r *http.Request) {
	var req transcodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if code, msg := req.validate(h); code != 0 {
		writeJSONError(w, msg, code)
		return
	}
	if !h.orch.Available() {
		writeJSONError(w, "transcoding service unavailable", http.StatusServiceUnavailable)
		return
	}

	job := h.orch.Start(r.Context(), req.identity(), req.options(h))
	if job == nil {
		writeJSONError(w, "failed to start transcode job", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, job)
}

// PlaybackURL resolves a playable URL for one file. This endpoint
// never fails over transcoding problems: the worst response is the
// original file URL with transcoded=false.
func (h *Handlers) PlaybackURL(w http.ResponseWriter, r *http.Request) {
	var req transcodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if code, msg := req.validate(h); code != 0 {
		writeJSONError(w, msg, code)
		return
	}

	identity := req.identity()
	file := transcode.FileRef{Name: req.Filename, URL: h.mediaURL(identity)}
	result := h.resolver.Resolve(r.Context(), file, identity, req.options(h))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// JobStatus proxies one job's current status.
func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.client.JobStatus(r.Context(), jobID)
	if err != nil {
		if err == ghoststream.ErrJobNotFound {
			writeJSONError(w, "job not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "failed to fetch job status", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, job)
}

// CancelJob cancels a job and stops its poll loop.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.orch.Cancel(r.Context(), mux.Vars(r)["jobId"])
	writeJSONStatus(w, "cancelled")
}

// DeleteJob cancels a job and asks the service to remove its output.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	h.orch.Delete(r.Context(), mux.Vars(r)["jobId"])
	writeJSONStatus(w, "deleted")
}

// ActiveJobs lists every job the registry currently tracks.
func (h *Handlers) ActiveJobs(w http.ResponseWriter, _ *http.Request) {
	type activeJob struct {
		CategoryID string           `json:"category_id"`
		Filename   string           `json:"filename"`
		Job        *ghoststream.Job `json:"job"`
	}

	snapshot := h.orch.Registry().Snapshot()
	jobs := make([]activeJob, 0, len(snapshot))
	for identity, job := range snapshot {
		jobs = append(jobs, activeJob{
			CategoryID: identity.CategoryID,
			Filename:   identity.Filename,
			Job:        job,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"count": len(jobs), "jobs": jobs})
}
