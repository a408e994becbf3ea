package models

// ErrorResponse is the error body every API endpoint returns.
type ErrorResponse struct {
	Detail string `json:"detail" example:"No records matched the given credentials."`
}

// MessageResponse acknowledges a successful write.
type MessageResponse struct {
	Message string `json:"message" example:"Configuration updated"`
}
