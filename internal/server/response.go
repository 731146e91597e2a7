package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the API error body. The single detail field mirrors
// what clients already parse.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
