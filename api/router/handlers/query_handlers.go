package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"lookupdesk/core"
	"lookupdesk/logger"
	"lookupdesk/models"
)

// QueryUserHandler returns every row matching the identifier and entry date.
func (h *Handler) QueryUserHandler(w http.ResponseWriter, r *http.Request) {
	var q models.UserQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		logger.Error("QueryUserHandler: Error decoding request body: %v", err)
		h.Metrics.observeQuery("bad_request")
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(q.DNI) == "" || strings.TrimSpace(q.FechaIngreso) == "" {
		h.Metrics.observeQuery("bad_request")
		writeError(w, http.StatusBadRequest, "Both dni and fecha_ingreso are required.")
		return
	}

	rs, err := h.Lookup.Search(q.DNI, q.FechaIngreso)
	switch {
	case errors.Is(err, core.ErrNoDataset):
		h.Metrics.observeQuery("maintenance")
		writeError(w, http.StatusServiceUnavailable, "The system is under maintenance (database not loaded).")
	case errors.Is(err, core.ErrNotConfigured):
		logger.Warn("QueryUserHandler: lookup attempted before key columns were configured")
		h.Metrics.observeQuery("not_configured")
		writeError(w, http.StatusInternalServerError, "Configuration error: key columns are not configured.")
	case errors.Is(err, core.ErrNotFound):
		h.Metrics.observeQuery("not_found")
		writeError(w, http.StatusNotFound, "No records found for the given DNI and entry date.")
	case err != nil:
		logger.Error("QueryUserHandler: Error searching: %v", err)
		h.Metrics.observeQuery("error")
		writeError(w, http.StatusInternalServerError, "Failed to run the query")
	default:
		h.Metrics.observeQuery("found")
		writeJSON(w, http.StatusOK, rs)
	}
}
