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

// MaxUploadBytes bounds the multipart body accepted by UploadHandler.
const MaxUploadBytes = 32 << 20

// GetConfigHandler returns the saved Configuration, or {} when none exists.
func (h *Handler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg := h.Lookup.Config()
	if cfg.IsZero() {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SaveConfigHandler validates and stores the Configuration.
func (h *Handler) SaveConfigHandler(w http.ResponseWriter, r *http.Request) {
	var payload models.ConfigPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Error("SaveConfigHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	cfg := payload.Configuration()
	if err := h.Lookup.SaveConfig(cfg); err != nil {
		if errors.Is(err, core.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("SaveConfigHandler: Error saving configuration: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}

	admin := ""
	if claims, ok := ClaimsFrom(r.Context()); ok {
		admin = claims.Subject
	}
	logger.Info("SaveConfigHandler: '%s' set key columns %q/%q with %d visible", admin, cfg.DNIColumn, cfg.DateColumn, len(cfg.VisibleColumns))
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Configuration saved"})
}

// GetColumnsHandler lists the active dataset's header in order.
func (h *Handler) GetColumnsHandler(w http.ResponseWriter, r *http.Request) {
	cols := h.Lookup.Columns()
	if cols == nil {
		cols = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"columns": cols})
}

// UploadHandler replaces the active dataset with the multipart "file" part.
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Error("UploadHandler: Error reading multipart file: %v", err)
		writeError(w, http.StatusBadRequest, "A spreadsheet must be sent in the 'file' field.")
		return
	}
	defer file.Close()

	resp, err := h.Lookup.Upload(header.Filename, file)
	if errors.Is(err, core.ErrInvalidFormat) {
		logger.Info("UploadHandler: rejected '%s': %v", header.Filename, err)
		writeError(w, http.StatusBadRequest, "Invalid file format. Only .xlsx spreadsheets are accepted.")
		return
	}
	if err != nil {
		logger.Error("UploadHandler: Error storing '%s': %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "Failed to process the uploaded file")
		return
	}
	logger.Info("UploadHandler: loaded '%s' with %d columns", header.Filename, len(resp.Columns))
	writeJSON(w, http.StatusOK, resp)
}

// SuggestionsHandler autocompletes identifiers containing dni_fragment.
func (h *Handler) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	fragment := strings.TrimSpace(r.URL.Query().Get("dni_fragment"))
	suggestions := h.Lookup.Suggest(fragment)
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// UserDetailHandler returns the first full record for dni.
func (h *Handler) UserDetailHandler(w http.ResponseWriter, r *http.Request) {
	dni := strings.TrimSpace(r.URL.Query().Get("dni"))
	if dni == "" {
		writeError(w, http.StatusBadRequest, "The dni parameter is required.")
		return
	}

	rec, loaded, err := h.Lookup.Detail(dni)
	if !loaded {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, core.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "Configuration error: key columns are not configured.")
	case err != nil:
		logger.Error("UserDetailHandler: Error looking up '%s': %v", dni, err)
		writeError(w, http.StatusInternalServerError, "Failed to load user detail")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}
