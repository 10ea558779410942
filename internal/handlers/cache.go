package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"ghosthub/internal/playbackcache"
)

// CacheGet returns the cached element for a key.
func (h *Handlers) CacheGet(w http.ResponseWriter, r *http.Request) {
	element := h.cache.Get(mux.Vars(r)["key"])
	if element == nil {
		writeJSONError(w, "not cached", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, element)
}

type cachePutRequest struct {
	Key     string                 `json:"key"`
	Element *playbackcache.Element `json:"element"`
}

// CachePut stores an element.
func (h *Handlers) CachePut(w http.ResponseWriter, r *http.Request) {
	var req cachePutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Key == "" || req.Element == nil {
		writeJSONError(w, "key and element are required", http.StatusBadRequest)
		return
	}

	h.cache.Put(req.Key, req.Element)
	writeJSONStatus(w, "cached")
}

// CacheStats reports cache occupancy.
func (h *Handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"entries":  h.cache.Len(),
		"capacity": h.cache.Capacity(),
		"keys":     h.cache.Keys(),
	})
}

// CacheClear empties the cache.
func (h *Handlers) CacheClear(w http.ResponseWriter, _ *http.Request) {
	h.cache.Clear()
	writeJSONStatus(w, "cleared")
}

// CachePrune runs an explicit eviction pass.
func (h *Handlers) CachePrune(w http.ResponseWriter, _ *http.Request) {
	evicted := h.cache.PruneToCapacity()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"evicted": evicted,
		"entries": h.cache.Len(),
	})
}
