package handlers

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gorilla/mux"

	"ghosthub/internal/ghoststream"
	"ghosthub/internal/logging"
	"ghosthub/internal/transcode"
	"ghosthub/internal/workers"
)

const batchStartWorkerLimit = 8

type batchStartRequest struct {
	CategoryID string `json:"category_id"`
	Resolution string `json:"resolution,omitempty"`
	VideoCodec string `json:"video_codec,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// StartBatch queues a whole-file transcode for every incompatible file
// in a category and monitors the set in the background. Progress is
// pushed over the event hub; finished outputs are materialized into
// the download directory.
func (h *Handlers) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req batchStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	category, err := h.categories.ByID(req.CategoryID)
	if err != nil {
		writeJSONError(w, "unknown category", http.StatusNotFound)
		return
	}
	if !h.orch.Available() {
		writeJSONError(w, "transcoding service unavailable", http.StatusServiceUnavailable)
		return
	}

	transcodedDir := filepath.Join(h.config.DownloadDir, category.ID)
	names, err := listBatchCandidates(category.Path, transcodedDir, req.Force)
	if err != nil {
		logging.Error("failed to scan category %s: %v", category.ID, err)
		writeJSONError(w, "failed to scan category directory", http.StatusInternalServerError)
		return
	}

	opts := transcode.Options{
		Mode:       ghoststream.ModeBatch,
		Resolution: req.Resolution,
		VideoCodec: req.VideoCodec,
		Force:      req.Force,
	}
	if opts.Resolution == "" {
		opts.Resolution = h.config.DefaultResolution
	}
	if opts.VideoCodec == "" {
		opts.VideoCodec = h.config.DefaultVideoCodec
	}

	jobs := h.startBatchJobs(r.Context(), category.ID, names, opts)

	if len(jobs) > 0 {
		scope := transcode.MediaIdentity{CategoryID: category.ID}
		go h.orch.MonitorBatch(context.Background(), jobs, scope, func(job *ghoststream.Job, status string) {
			if job == nil {
				h.hub.Broadcast("batch_complete", map[string]string{"category_id": category.ID})
				return
			}
			h.hub.Broadcast("batch_progress", map[string]interface{}{
				"category_id": category.ID,
				"job":         job,
				"status":      status,
			})
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"queued":      len(jobs),
		"total_found": len(names),
		"jobs":        jobs,
	})
}

// startBatchJobs fans job starts out over a bounded worker pool.
// Individual failures are skipped; the orchestrator already logged
// them.
func (h *Handlers) startBatchJobs(ctx context.Context, categoryID string, names []string, opts transcode.Options) []transcode.BatchJob {
	sem := make(chan struct{}, workers.ForIO(batchStartWorkerLimit))

	var mu sync.Mutex
	var jobs []transcode.BatchJob
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			identity := transcode.MediaIdentity{CategoryID: categoryID, Filename: name}
			job := h.orch.Start(ctx, identity, opts)
			if job == nil {
				return
			}

			mu.Lock()
			jobs = append(jobs, transcode.BatchJob{JobID: job.JobID, Filename: name})
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Filename < jobs[j].Filename })
	return jobs
}

// listBatchCandidates selects the files in dir that need transcoding
// and do not already have a materialized output in transcodedDir.
func listBatchCandidates(dir, transcodedDir string, force bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !force && !transcode.NeedsTranscoding(e.Name()) {
			continue
		}
		output := filepath.Join(transcodedDir, transcode.MaterializedName(e.Name()))
		if _, err := os.Stat(output); err == nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ProbeTranscoded reports whether a materialized output exists for an
// original file, and where to fetch it.
func (h *Handlers) ProbeTranscoded(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, filename := vars["categoryId"], vars["filename"]

	if _, err := h.categories.ByID(categoryID); err != nil {
		writeJSONError(w, "unknown category", http.StatusNotFound)
		return
	}
	if filepath.Base(filename) != filename {
		writeJSONError(w, "invalid filename", http.StatusBadRequest)
		return
	}

	output := transcode.MaterializedName(filename)
	path := filepath.Join(h.config.DownloadDir, categoryID, output)

	resp := map[string]interface{}{"exists": false}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		resp["exists"] = true
		resp["url"] = "/api/batch/transcoded/" + url.PathEscape(categoryID) + "/" + url.PathEscape(output)
		resp["size"] = info.Size()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// ListTranscoded lists materialized batch outputs for a category.
func (h *Handlers) ListTranscoded(w http.ResponseWriter, r *http.Request) {
	categoryID := mux.Vars(r)["categoryId"]
	if _, err := h.categories.ByID(categoryID); err != nil {
		writeJSONError(w, "unknown category", http.StatusNotFound)
		return
	}

	dir := filepath.Join(h.config.DownloadDir, categoryID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, map[string]interface{}{"files": []string{}})
			return
		}
		writeJSONError(w, "failed to read download directory", http.StatusInternalServerError)
		return
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"files": files})
}

// ServeTranscoded serves one materialized batch output.
func (h *Handlers) ServeTranscoded(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, filename := vars["categoryId"], vars["filename"]

	if _, err := h.categories.ByID(categoryID); err != nil {
		writeJSONError(w, "unknown category", http.StatusNotFound)
		return
	}

	// The path is rebuilt from validated parts; mux does not decode
	// traversal sequences into them, but check anyway.
	if filepath.Base(filename) != filename {
		writeJSONError(w, "invalid filename", http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.config.DownloadDir, categoryID, filename)
	if _, err := os.Stat(path); err != nil {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, path)
}
