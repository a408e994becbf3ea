package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidConfig is matched by every Configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError names the Configuration field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Configuration is the administrator-defined lookup metadata.
type Configuration struct {
	DNIColumn      string   `json:"dni_column" example:"DNI"`
	DateColumn     string   `json:"date_column" example:"FECHA INGRESO"`
	VisibleColumns []string `json:"visible_columns"`
}

// IsZero reports whether nothing has been configured yet.
func (c Configuration) IsZero() bool {
	return c.DNIColumn == "" && c.DateColumn == "" && len(c.VisibleColumns) == 0
}

// KeysConfigured reports whether both lookup key columns are set.
func (c Configuration) KeysConfigured() bool {
	return strings.TrimSpace(c.DNIColumn) != "" && strings.TrimSpace(c.DateColumn) != ""
}

// Validate checks the fields required before a Configuration may be saved.
func (c Configuration) Validate() error {
	if strings.TrimSpace(c.DNIColumn) == "" {
		return &ValidationError{Field: "dni_column", Reason: "identifier column is required"}
	}
	if strings.TrimSpace(c.DateColumn) == "" {
		return &ValidationError{Field: "date_column", Reason: "date column is required"}
	}
	if len(c.VisibleColumns) == 0 {
		return &ValidationError{Field: "visible_columns", Reason: "at least one visible column is required"}
	}
	return nil
}

// IsVisible reports whether col is shown to end users. An empty visible set
// shows everything.
func (c Configuration) IsVisible(col string) bool {
	if len(c.VisibleColumns) == 0 {
		return true
	}
	for _, v := range c.VisibleColumns {
		if v == col {
			return true
		}
	}
	return false
}

// ConfigPayload is the body of POST /api/admin/config. The admin screen
// sends the visible set as selected_columns; visible_columns is accepted too.
type ConfigPayload struct {
	DNIColumn       string   `json:"dni_column"`
	DateColumn      string   `json:"date_column"`
	SelectedColumns []string `json:"selected_columns,omitempty"`
	VisibleColumns  []string `json:"visible_columns,omitempty"`
}

// Configuration converts the payload, preferring selected_columns.
func (p ConfigPayload) Configuration() Configuration {
	cols := p.SelectedColumns
	if cols == nil {
		cols = p.VisibleColumns
	}
	return Configuration{
		DNIColumn:      strings.TrimSpace(p.DNIColumn),
		DateColumn:     strings.TrimSpace(p.DateColumn),
		VisibleColumns: cols,
	}
}

// MarshalJSON always writes visible_columns as an array.
func (c Configuration) MarshalJSON() ([]byte, error) {
	type alias Configuration
	a := alias(c)
	if a.VisibleColumns == nil {
		a.VisibleColumns = []string{}
	}
	return json.Marshal(a)
}
