package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"ghosthub/internal/transcode"
)

// ServeMedia serves an original file from a category directory. This
// is both the browser's direct-playback path and the URL the remote
// transcoding service fetches sources from.
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, filename := vars["categoryId"], vars["filename"]

	category, err := h.categories.ByID(categoryID)
	if err != nil {
		writeJSONError(w, "unknown category", http.StatusNotFound)
		return
	}

	if filepath.Base(filename) != filename {
		writeJSONError(w, "invalid filename", http.StatusBadRequest)
		return
	}

	path := filepath.Join(category.Path, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return
	}

	// ServeFile handles range requests, needed for video scrubbing.
	http.ServeFile(w, r, path)
}

// ListMedia lists the files in a category directory.
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.ByID(mux.Vars(r)["categoryId"])
	if err != nil {
		writeJSONError(w, "unknown category", http.StatusNotFound)
		return
	}

	entries, err := os.ReadDir(category.Path)
	if err != nil {
		writeJSONError(w, "failed to read category directory", http.StatusInternalServerError)
		return
	}

	type mediaFile struct {
		Name             string `json:"name"`
		Size             int64  `json:"size"`
		NeedsTranscoding bool   `json:"needs_transcoding"`
	}

	files := make([]mediaFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, mediaFile{
			Name:             e.Name(),
			Size:             info.Size(),
			NeedsTranscoding: transcode.NeedsTranscoding(e.Name()),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"files": files})
}
