package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Session is the authenticated state shared by the client and its host
// screens. The zero value is logged out.
type Session struct {
	mu       sync.RWMutex
	username string
	token    string
	role     string
	loggedAt time.Time
}

// sessionState is the on-disk form written by Save.
type sessionState struct {
	Username   string    `json:"username"`
	Token      string    `json:"token"`
	Role       string    `json:"role"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

func NewSession() *Session {
	return &Session{}
}

// Login replaces the session's credentials.
func (s *Session) Login(username, token, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.token, s.role = username, token, role
	s.loggedAt = time.Now().UTC()
}

// Logout clears the session.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.token, s.role = "", "", ""
	s.loggedAt = time.Time{}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Save writes the session to path with owner-only permissions. A logged out
// session removes the file.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	state := sessionState{Username: s.username, Token: s.token, Role: s.role, LoggedInAt: s.loggedAt}
	s.mu.RUnlock()

	if state.Token == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing session file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// LoadSession reads a session saved by Save. A missing file yields a
// logged out session.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding session file %s: %w", path, err)
	}
	return &Session{
		username: state.Username,
		token:    state.Token,
		role:     state.Role,
		loggedAt: state.LoggedInAt,
	}, nil
}
