package domain

import (
	"encoding/json"
	"net/http"
)

// ErrorCode represents a specific error condition.
type ErrorCode string

const (
	ErrInvalidAPIKey     ErrorCode = "InvalidAPIKey"       // HTTP 401
	ErrInvalidToken      ErrorCode = "InvalidToken"        // HTTP 403
	ErrBadRequest        ErrorCode = "BadRequest"          // HTTP 400, e.g., invalid generate-token payload
	ErrMethodNotAllowed  ErrorCode = "MethodNotAllowed"    // HTTP 405
	ErrStartupIncomplete ErrorCode = "StartupIncomplete"   // HTTP 503, startup sequence not finished
	ErrInternal          ErrorCode = "InternalServerError" // HTTP 500
)

// ErrorResponse is the standard error format returned to clients as HTTP JSON.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}
