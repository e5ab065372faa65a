package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/lifequality/internal/types"
)

// Error messages returned to clients.
const (
	msgUnauthorized     = "Unauthorized"
	msgTooManyRequests  = "Too many requests"
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
	msgRatingIDRequired = "Rating ID required"
	msgRatingNotFound   = "Rating not found"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a JSON {error} response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// WriteErrorDetails writes a JSON {error, details} response.
func WriteErrorDetails(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Details: details})
}

// writeStoreError maps a document store failure to a 500 with details.
func writeStoreError(w http.ResponseWriter, r *http.Request, action string, err error) {
	slog.Error("document store failure",
		"component", "api",
		"action", action,
		"path", r.URL.Path,
		"error", err,
	)
	WriteErrorDetails(w, http.StatusInternalServerError, msgInternal, err.Error())
}
