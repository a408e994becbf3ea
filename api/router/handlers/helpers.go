package handlers

import (
	"encoding/json"
	"net/http"
	"lookupdesk/core"
	"lookupdesk/logger"
	"lookupdesk/models"
)

// Handler carries the services every route needs.
type Handler struct {
	Lookup  *core.LookupService
	Auth    *core.Authenticator
	Limiter *RateLimiter
	Metrics *Metrics
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("writeJSON: Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}
