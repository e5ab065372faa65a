package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/lifequality/internal/blob"
	"github.com/hyperengineering/lifequality/internal/types"
)

// timestampLayout is RFC 3339 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Sync handles /api/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSync(w, r)
	case http.MethodPost:
		h.postSync(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func (h *Handler) getSync(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), blob.NameAllData)
	if err != nil {
		writeStoreError(w, r, "get_sync", err)
		return
	}
	writeJSON(w, http.StatusOK, types.SyncResponse{
		Success:   true,
		Data:      doc,
		Timestamp: h.timestamp(),
	})
}

func (h *Handler) postSync(w http.ResponseWriter, r *http.Request) {
	var req types.SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteErrorDetails(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	incoming, ok := decodeObject(req.Data)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid sync data")
		return
	}

	unlock := h.locks.lock(blob.NameAllData)
	defer unlock()

	existing, err := h.docs.Get(r.Context(), blob.NameAllData)
	if err != nil {
		writeStoreError(w, r, "get_sync", err)
		return
	}
	merged, err := mergeSyncDocument(existing, incoming)
	if err != nil {
		writeStoreError(w, r, "merge_sync", err)
		return
	}
	if err := h.docs.Put(r.Context(), blob.NameAllData, merged); err != nil {
		writeStoreError(w, r, "put_sync", err)
		return
	}

	slog.Info("sync document updated",
		"component", "api",
		"action", "sync_push",
		"sections", len(incoming),
		"client", ClientKeyFromContext(r.Context()),
	)
	writeJSON(w, http.StatusOK, types.SyncWriteResponse{Success: true, Timestamp: h.timestamp()})
}

// mergeSyncDocument overlays incoming sections on existing ones. When both
// sides carry a ratings object, the two are merged by week id with the
// incoming week winning; every other section is replaced wholesale.
func mergeSyncDocument(existing, incoming types.Document) (types.Document, error) {
	merged := make(types.Document, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}

	oldRatings, okOld := decodeObject(existing["ratings"])
	newRatings, okNew := decodeObject(incoming["ratings"])
	if !okOld || !okNew {
		return merged, nil
	}
	for id, week := range newRatings {
		oldRatings[id] = week
	}
	raw, err := json.Marshal(oldRatings)
	if err != nil {
		return nil, err
	}
	merged["ratings"] = raw
	return merged, nil
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(timestampLayout)
}

