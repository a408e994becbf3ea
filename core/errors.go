package core

import (
	"errors"

	"lookupdesk/models"
)

var (
	// ErrNoDataset means no spreadsheet has been loaded; queries answer with
	// the maintenance message.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrNotConfigured means the identifier or date column is not set.
	ErrNotConfigured = errors.New("lookup columns are not configured")
	ErrNotFound      = errors.New("no matching record")
	ErrInvalidFormat = errors.New("invalid spreadsheet")
	// ErrValidation matches every Configuration validation failure.
	ErrValidation      = models.ErrInvalidConfig
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidUsername = errors.New("username and password are required")
)
