package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/steveyegge/tracker/internal/storage"
)

// jsonErrorResponse encodes a structured error payload for API clients.
type jsonErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes an error response encoded as JSON with the given status.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	payload := jsonErrorResponse{
		Error: strings.TrimSpace(message),
	}
	if detail := strings.TrimSpace(details); detail != "" {
		payload.Details = detail
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeStorageError maps storage sentinel errors onto HTTP status codes.
// ErrConflict carries a Retry-After hint since the caller may simply retry.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, storage.ErrValidation):
		WriteJSONError(w, http.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, storage.ErrDuplicateID):
		WriteJSONError(w, http.StatusConflict, "duplicate identifier", err.Error())
	case errors.Is(err, storage.ErrInvalidHierarchy):
		WriteJSONError(w, http.StatusUnprocessableEntity, "invalid hierarchy", err.Error())
	case errors.Is(err, storage.ErrCycle):
		WriteJSONError(w, http.StatusUnprocessableEntity, "hierarchy cycle", err.Error())
	case errors.Is(err, storage.ErrConflict):
		w.Header().Set("Retry-After", "1")
		WriteJSONError(w, http.StatusConflict, "concurrency conflict", err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
