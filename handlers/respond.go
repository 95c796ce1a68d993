package handlers

import (
	"encoding/json"
	"net/http"

	"postergrid/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates an error into a JSON body with a short
// user-facing message; the raw error text stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch models.TypeOf(err) {
	case models.ErrRateLimit:
		status = http.StatusTooManyRequests
	case models.ErrNotFound:
		status = http.StatusNotFound
	case models.ErrAPI, models.ErrNetwork:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": models.UserMessage(err)})
}
