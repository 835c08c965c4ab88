// Package errors provides typed errors for the portfolio tracker.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common error cases.
var (
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates a missing or wrong admin token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates a validation error.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates a resource conflict (e.g., duplicate).
	ErrConflict = errors.New("resource conflict")

	// ErrInternal indicates an internal server error.
	ErrInternal = errors.New("internal error")

	// ErrRateLimit indicates the backing store refused a write for now.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrInsufficientData indicates there is not enough history for a calculation.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnparseable indicates a source file had no recognizable structure.
	ErrUnparseable = errors.New("unparseable source")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// Details contains additional error details.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the error type and the cause, so errors.Is sees both.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Type, e.Cause}
	}
	return []error{e.Type}
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NotFoundf creates a not found error with formatting.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrUnauthorized,
		Message: message,
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// Validationf creates a validation error with formatting.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationField creates a validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
		Details: map[string]any{"field": field},
	}
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Type:    ErrConflict,
		Message: message,
	}
}

// Internal creates an internal error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// RateLimited creates a rate limit error around a store failure.
func RateLimited(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrRateLimit,
		Message: fmt.Sprintf("%s: rate limited", operation),
		Cause:   cause,
	}
}

// InsufficientData creates an insufficient data error.
func InsufficientData(message string) *AppError {
	return &AppError{
		Type:    ErrInsufficientData,
		Message: message,
	}
}

// Unparseable creates an unparseable source error.
func Unparseable(source string, cause error) *AppError {
	return &AppError{
		Type:    ErrUnparseable,
		Message: fmt.Sprintf("cannot parse %s", source),
		Cause:   cause,
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsRateLimit checks if an error is a rate limit error.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// IsInsufficientData checks if an error is an insufficient data error.
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnparseable):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of an AppError, or a generic one.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
