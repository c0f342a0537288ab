// Package api provides the HTTP handlers of the signbridge server.
package api

import (
	"encoding/json"
	"net/http"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// statusResponse is the {message, status} envelope the front end expects.
type statusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeStatus writes a {message, status} response. Codes of 400 and
// above are reported as errors.
func writeStatus(w http.ResponseWriter, code int, message string) {
	status := statusSuccess
	if code >= http.StatusBadRequest {
		status = statusError
	}
	writeJSON(w, code, statusResponse{Message: message, Status: status})
}
