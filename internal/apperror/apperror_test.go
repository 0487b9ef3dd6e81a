package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("issue", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Remote wraps ErrRemote",
			err:       Remote("failed to fetch issues", nil),
			target:    ErrRemote,
			wantMatch: true,
		},
		{
			name:      "Remote preserves the cause in the chain",
			err:       Remote("failed to fetch issues", errors.New("connection refused")),
			target:    ErrRemote,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("valid authentication required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("issue", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Remote does NOT match ErrUnauthorized",
			err:       Remote("boom", nil),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("issue", "abc123"),
			wantMessage: "issue not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "title is required"),
			wantMessage: "title is required",
		},
		{
			name:        "Remote carries the user-facing message",
			err:         Remote("Failed to upvote issue", errors.New("dial tcp: timeout")),
			wantMessage: "Failed to upvote issue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestRemoteCauseSurvivesWrapping(t *testing.T) {
	// The %w chain must stay intact when callers add their own context,
	// so errors.Is still finds both ErrRemote and the original cause.
	cause := errors.New("connection reset")
	err := fmt.Errorf("upvoting issue abc: %w", Remote("Failed to upvote issue", cause))

	if !errors.Is(err, ErrRemote) {
		t.Error("wrapped error should match ErrRemote")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match the original cause")
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("description", "description must be between 10 and 1000 characters")

	if err.Field != "description" {
		t.Errorf("Field = %q, want %q", err.Field, "description")
	}
}
