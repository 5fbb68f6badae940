package httpapi

import (
	"encoding/json"
	"net/http"
)

// envelope is the top level of every response body. "success" is set by the
// writers below.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["success"] = true
	writeJSON(w, statusCode, body)
}

func writeError(w http.ResponseWriter, statusCode int, kind, message string) {
	writeJSON(w, statusCode, envelope{
		"success": false,
		"error":   kind,
		"message": message,
	})
}
