package api

import (
	"encoding/json"
	"net/http"
)

// resultResponse is the body of every switch and env failure, and of a
// successful POST /api/switch.
type resultResponse struct {
	Success bool `json:"success"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeFailure writes {"success":false} with the given status.
func writeFailure(w http.ResponseWriter, status int) {
	writeJSON(w, status, resultResponse{Success: false})
}

// writeBadRequest writes a 400 failure.
func writeBadRequest(w http.ResponseWriter) {
	writeFailure(w, http.StatusBadRequest)
}

// writeUnauthorized writes a 401 failure.
func writeUnauthorized(w http.ResponseWriter) {
	writeFailure(w, http.StatusUnauthorized)
}

// writeInternalError writes a 500 failure.
func writeInternalError(w http.ResponseWriter) {
	writeFailure(w, http.StatusInternalServerError)
}
