package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations and failures
// of the external collaborators.
var (
	// Authentication & Authorization
	ErrForbidden     = errors.New("action forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadSecret     = errors.New("scheduler secret mismatch")
	ErrSecretMissing = errors.New("scheduler secret not configured")

	// Ticket backend
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrBackendUnavailable = errors.New("ticket backend unavailable")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

// NewForbiddenError carries a permission-denial reason. The reason is
// deterministic and safe for logs.
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

// NewBackendError marks a failed read/write against the ticketing
// backend; surfaced as a bad gateway rather than an internal error.
func NewBackendError(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrBackendUnavailable, err),
		Message:    "The ticketing backend did not respond",
		Code:       "BACKEND_UNAVAILABLE",
		StatusCode: 502,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
