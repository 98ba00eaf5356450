package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahumphreys/spindle/internal/services"
	"github.com/charmbracelet/log"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto the response.
//
// Upstream API failures keep their status and message (surfaced verbatim);
// everything else is an opaque 500 so storage details never leak to the client.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]any{
			"error": map[string]any{"status": apiErr.Status, "message": apiErr.Message},
		})
		return
	}

	logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
