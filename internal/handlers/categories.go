package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ghosthub/internal/categories"
)

// ListCategories returns every registered category.
func (h *Handlers) ListCategories(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"categories": h.categories.All()})
}

type addCategoryRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// AddCategory registers a media directory.
func (h *Handlers) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Path == "" {
		writeJSONError(w, "name and path are required", http.StatusBadRequest)
		return
	}

	category, err := h.categories.Add(req.Name, req.Path)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, category)
}

// RemoveCategory unregisters a category. Files on disk are untouched.
func (h *Handlers) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	err := h.categories.Remove(mux.Vars(r)["categoryId"])
	if err != nil {
		if errors.Is(err, categories.ErrNotFound) {
			writeJSONError(w, "unknown category", http.StatusNotFound)
			return
		}
		writeJSONError(w, "failed to remove category", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "removed")
}

// GetCategory returns one category.
func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.ByID(mux.Vars(r)["categoryId"])
	if err != nil {
		writeJSONError(w, "unknown category", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, category)
}
