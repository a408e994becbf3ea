package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds returned by Client. Every failure is an *APIError whose Kind
// is one of these, so callers match with errors.Is.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotConfigured = errors.New("service not configured")
	ErrNotFound      = errors.New("not found")
	ErrInvalidFormat = errors.New("invalid file format")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrRateLimited   = errors.New("rate limited")
	ErrRequest       = errors.New("request rejected")
	ErrServer        = errors.New("server error")
	// ErrConnection means no HTTP response was received.
	ErrConnection    = errors.New("connection failed")
)

// APIError is a classified failure. Status is zero when no response arrived.
type APIError struct {
	Status int
	Detail string
	Kind   error
	Err    error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("%v (HTTP %d): %s", e.Kind, e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("%v (HTTP %d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Is matches the error's Kind.
func (e *APIError) Is(target error) bool {
	return e.Kind == target
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// endpoint tells classify how to read ambiguous statuses.
type endpoint int

const (
	endpointAuth endpoint = iota
	endpointRegister
	endpointUpload
	endpointConfig
	endpointSearch
	endpointAdmin
)

// classify maps a non-2xx response to an error kind.
func classify(ep endpoint, status int, detail string) *APIError {
	e := &APIError{Status: status, Detail: detail}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = ErrUnauthorized
	case status == http.StatusForbidden:
		e.Kind = ErrForbidden
	case status == http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
	case status == http.StatusNotFound:
		e.Kind = ErrNotFound
	case status == http.StatusServiceUnavailable:
		e.Kind = ErrNotConfigured
	case status == http.StatusConflict:
		e.Kind = ErrConflict
	case ep == endpointRegister && status == http.StatusBadRequest:
		e.Kind = ErrConflict
	case ep == endpointUpload && (status == http.StatusBadRequest || status == http.StatusUnsupportedMediaType):
		e.Kind = ErrInvalidFormat
	case ep == endpointConfig && (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity):
		e.Kind = ErrValidation
	case status >= 500 && strings.Contains(strings.ToLower(detail), "configur"):
		e.Kind = ErrNotConfigured
	case status >= 400 && status < 500:
		e.Kind = ErrRequest
	default:
		e.Kind = ErrServer
	}
	return e
}

func connectionError(err error) *APIError {
	return &APIError{Kind: ErrConnection, Err: err}
}

// MaintenanceMessage is shown when the service has no data or no key columns.
const MaintenanceMessage = "The system is under maintenance. Please try again later."

// UserMessage renders err for display to an end user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	detail := ""
	if errors.As(err, &apiErr) {
		detail = apiErr.Detail
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		return MaintenanceMessage
	case errors.Is(err, ErrRateLimited):
		return "Too many searches. Please wait a minute and try again."
	case errors.Is(err, ErrNotFound):
		if detail != "" {
			return detail
		}
		return "No records found."
	case errors.Is(err, ErrUnauthorized):
		return "Invalid credentials or expired session. Please log in again."
	case errors.Is(err, ErrForbidden):
		return "Access denied. Your account exists but does not have administrator permissions."
	case errors.Is(err, ErrConflict):
		if detail != "" {
			return detail
		}
		return "That username is already registered."
	case errors.Is(err, ErrInvalidFormat):
		return "Invalid file format. Only .xlsx spreadsheets are accepted."
	case errors.Is(err, ErrValidation):
		if detail == "" && apiErr != nil && apiErr.Err != nil {
			detail = apiErr.Err.Error()
		}
		return "Invalid configuration: " + detail
	case errors.Is(err, ErrRequest):
		if detail != "" {
			return detail
		}
		return "The server rejected the request."
	case errors.Is(err, ErrServer):
		if detail != "" {
			return "Server error: " + detail
		}
		return "The server failed to process the request. Please try again later."
	case errors.Is(err, ErrConnection):
		return "Could not reach the server. Check your connection and try again."
	}
	return err.Error()
}
