package mockd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
)

// ErrorResponse is the error shape every endpoint returns, and the shape
// the API client decodes: {"error": "not_found", "message": "..."}.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends data with the given status. Headers must be set before
// the first body write, hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status. The mapping is the
// inverse of the client's decodeError, so a sentinel survives a round trip
// through the wire.
//
// The sentinel check goes through errors.Is rather than a type switch:
// validation failures arrive both as *AppError (single field) and as
// validate.FieldErrors (whole form), and both unwrap to ErrValidation.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	}

	// Internal errors never leak their details to the client.
	message := "An internal error occurred"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status != http.StatusInternalServerError {
		message = err.Error()
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

// decodeBody reads a JSON request body into dst, rejecting unknown fields
// so typos in hand-crafted requests fail loudly.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body is not valid JSON")
	}
	return nil
}
