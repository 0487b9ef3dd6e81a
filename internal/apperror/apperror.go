// Package apperror defines the error taxonomy shared by the client library
// and the mock server.
//
// Three kinds of failure exist in this codebase:
//
//   - Validation failures: caught locally, before any network call, and
//     scoped to a field (ErrValidation + Field).
//   - Remote failures: the server rejected the request or the network broke
//     (ErrRemote, refined to ErrUnauthorized/ErrForbidden/ErrNotFound/
//     ErrConflict when the response status says so). The Message is the
//     user-facing text to surface; the operation is abandoned, never
//     retried automatically.
//   - Reconciliation no-ops: an event referencing an unknown or
//     already-consistent record. These are NOT errors and no type exists
//     for them — the merge code just returns.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRemote marks any failed remote operation: network error, 5xx, or a
	// 4xx that doesn't map to a more specific sentinel above.
	ErrRemote = errors.New("remote operation failed")
)

// AppError carries a sentinel for errors.Is dispatch plus the message a UI
// would show. Field is set only for validation errors.
type AppError struct {
	Err     error  // sentinel (one of the package vars above)
	Message string // human-readable, safe to surface
	Field   string // optional: the field that failed validation
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// The mock server maps this to 403; the client produces it when the real
// server answers 403.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means the request needed a valid credential and didn't have
// one. On the client side this also clears the stored token (see the API
// client's OnUnauthorized hook).
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Remote wraps a failed remote operation with the message to surface.
// cause may be nil when the server supplied the message itself.
func Remote(message string, cause error) *AppError {
	err := ErrRemote
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrRemote, cause)
	}
	return &AppError{
		Err:     err,
		Message: message,
	}
}
