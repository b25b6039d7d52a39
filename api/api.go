// Package api holds the HTTP middleware shared by every route: bearer/basic
// authentication, request timeouts and request metrics.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/models"
)

// HealthCheckHandler answers liveness probes
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, models.HealthCheckResponse{Alive: true})
}

// WriteJSON marshals v and writes it with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		zap.S().Errorw("failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
