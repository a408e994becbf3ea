package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"lookupdesk/core"
	"lookupdesk/database"
	"lookupdesk/logger"
	"lookupdesk/models"
)

// RegisterHandler creates a USER account from a JSON {username, password} body.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		logger.Error("RegisterHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	user, err := h.Auth.Register(creds.Username, creds.Password)
	switch {
	case errors.Is(err, core.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, "Username and password are required.")
		return
	case errors.Is(err, database.ErrUserExists):
		writeError(w, http.StatusConflict, "Username already registered.")
		return
	case err != nil:
		logger.Error("RegisterHandler: Error creating user '%s': %v", creds.Username, err)
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	logger.Info("RegisterHandler: registered user '%s' with role %s", user.Username, user.Role)
	writeJSON(w, http.StatusCreated, models.MessageResponse{Message: "User registered successfully. An administrator must grant access."})
}

// readCredentials accepts the OAuth2 password form and, for convenience, JSON.
func readCredentials(r *http.Request) (models.Credentials, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var creds models.Credentials
		err := json.NewDecoder(r.Body).Decode(&creds)
		return creds, err
	}
	if err := r.ParseForm(); err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}, nil
}

// LoginHandler exchanges credentials for a bearer token.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		logger.Error("LoginHandler: Error reading credentials: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	token, err := h.Auth.Login(creds.Username, creds.Password)
	if errors.Is(err, core.ErrBadCredentials) {
		logger.Info("LoginHandler: failed login for '%s' from %s", creds.Username, clientIP(r))
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if err != nil {
		logger.Error("LoginHandler: Error logging in '%s': %v", creds.Username, err)
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	writeJSON(w, http.StatusOK, token)
}
