package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/hyperengineering/lifequality/internal/blob"
	"github.com/hyperengineering/lifequality/internal/types"
)

// maxBodyBytes bounds request bodies for both document routes.
const maxBodyBytes = 5 << 20

// Handler implements the API handlers
type Handler struct {
	docs    blob.Store
	storage string
	version string
	locks   docLocks
	now     func() time.Time
}

// NewHandler creates a Handler serving documents from docs. storage names
// the backend for the health response.
func NewHandler(docs blob.Store, storage, version string) *Handler {
	return &Handler{
		docs:    docs,
		storage: storage,
		version: version,
		locks:   docLocks{m: make(map[string]*sync.Mutex)},
		now:     time.Now,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Storage: h.storage,
	})
}

// Ratings handles /api/ratings.
func (h *Handler) Ratings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getRatings(w, r)
	case http.MethodPost:
		h.postRatings(w, r)
	case http.MethodDelete:
		h.deleteRating(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func (h *Handler) getRatings(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), blob.NameRatings)
	if err != nil {
		writeStoreError(w, r, "get_ratings", err)
		return
	}
	writeJSON(w, http.StatusOK, types.RatingsResponse{Ratings: doc})
}

func (h *Handler) postRatings(w http.ResponseWriter, r *http.Request) {
	var req types.RatingsWriteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteErrorDetails(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	incoming, ok := decodeObject(req.Ratings)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid ratings data")
		return
	}

	unlock := h.locks.lock(blob.NameRatings)
	defer unlock()

	existing, err := h.docs.Get(r.Context(), blob.NameRatings)
	if err != nil {
		writeStoreError(w, r, "get_ratings", err)
		return
	}
	for id, week := range incoming {
		existing[id] = week
	}
	if err := h.docs.Put(r.Context(), blob.NameRatings, existing); err != nil {
		writeStoreError(w, r, "put_ratings", err)
		return
	}

	writeJSON(w, http.StatusOK, types.RatingsWriteResponse{Success: true, Ratings: existing})
}

func (h *Handler) deleteRating(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" && r.Body != nil {
		var req types.DeleteRequest
		// An empty or malformed body just means no id was given.
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
		id = req.ID
	}
	if id == "" {
		WriteError(w, http.StatusBadRequest, msgRatingIDRequired)
		return
	}

	unlock := h.locks.lock(blob.NameRatings)
	defer unlock()

	existing, err := h.docs.Get(r.Context(), blob.NameRatings)
	if err != nil {
		writeStoreError(w, r, "get_ratings", err)
		return
	}
	if _, ok := existing[id]; !ok {
		WriteError(w, http.StatusNotFound, msgRatingNotFound)
		return
	}
	delete(existing, id)
	if err := h.docs.Put(r.Context(), blob.NameRatings, existing); err != nil {
		writeStoreError(w, r, "put_ratings", err)
		return
	}

	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// decodeObject accepts only a JSON object.
func decodeObject(raw json.RawMessage) (types.Document, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var doc types.Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// docLocks serializes read-merge-write cycles per document name.
type docLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (d *docLocks) lock(name string) func() {
	d.mu.Lock()
	l, ok := d.m[name]
	if !ok {
		l = &sync.Mutex{}
		d.m[name] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}
