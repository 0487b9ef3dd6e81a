// Package validate implements local, pre-network form validation.
//
// Every rule here blocks a request before it leaves the process: a draft
// that fails validation never costs a network round trip, and the failure
// is reported per field so a form can highlight exactly what's wrong.
//
// The limits mirror what the UrbanPatch server enforces. Keeping them in
// one place (instead of inline at each call site) means the CLI, the store,
// and the mock server all agree on what "valid" means.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// Field limits. Title/description/comment lengths are counted after
// trimming surrounding whitespace.
const (
	TitleMinLength       = 5
	TitleMaxLength       = 100
	DescriptionMinLength = 10
	DescriptionMaxLength = 1000
	CommentMaxLength     = 500
	NameMinLength        = 2
	PasswordMinLength    = 6
	TagMaxLength         = 50
)

// emailPattern is deliberately loose: something@something.something.
// Real validation happens when the server sends a confirmation mail;
// this only catches obvious typos before a round trip.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps field name → user-facing message. It implements error
// and unwraps to apperror.ErrValidation, so callers can both check
// errors.Is(err, apperror.ErrValidation) and enumerate the fields.
type FieldErrors map[string]string

// Error joins the per-field messages in stable (sorted) field order.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fe))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fe[f]))
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(fe, apperror.ErrValidation) succeed.
func (fe FieldErrors) Unwrap() error {
	return apperror.ErrValidation
}

// errOrNil converts an empty FieldErrors to nil. Returning a typed nil-ish
// map as error would make `err != nil` true even with zero failures.
func (fe FieldErrors) errOrNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// ValidateIssueDraft checks every field of a draft and reports all failures
// at once (not just the first), so a form can mark every offending field in
// a single pass.
func ValidateIssueDraft(d model.IssueDraft) error {
	fe := FieldErrors{}

	title := strings.TrimSpace(d.Title)
	if len(title) < TitleMinLength || len(title) > TitleMaxLength {
		fe["title"] = fmt.Sprintf("title must be between %d and %d characters", TitleMinLength, TitleMaxLength)
	}

	description := strings.TrimSpace(d.Description)
	if len(description) < DescriptionMinLength || len(description) > DescriptionMaxLength {
		fe["description"] = fmt.Sprintf("description must be between %d and %d characters", DescriptionMinLength, DescriptionMaxLength)
	}

	if !d.Severity.Valid() {
		fe["severity"] = "severity must be one of: low, medium, high, critical"
	}

	if !d.Location.Valid() {
		fe["location"] = "location must be a valid latitude/longitude pair"
	}

	for _, tag := range d.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" || len(trimmed) > TagMaxLength {
			fe["tags"] = fmt.Sprintf("tags must be non-empty and at most %d characters", TagMaxLength)
			break
		}
	}

	return fe.errOrNil()
}

// ValidateComment checks comment text (1–500 characters after trimming).
func ValidateComment(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return apperror.ValidationFailed("text", "comment cannot be empty")
	}
	if len(trimmed) > CommentMaxLength {
		return apperror.ValidationFailed("text",
			fmt.Sprintf("comment must be at most %d characters", CommentMaxLength))
	}
	return nil
}

// ValidateCloseReason checks the mandatory reason for closing an issue.
func ValidateCloseReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperror.ValidationFailed("reason", "a reason is required to close an issue")
	}
	return nil
}

// ValidateRegistration checks a new account's fields.
func ValidateRegistration(name, email, password, confirm string) error {
	fe := FieldErrors{}

	if len(strings.TrimSpace(name)) < NameMinLength {
		fe["name"] = fmt.Sprintf("name must be at least %d characters", NameMinLength)
	}
	if !emailPattern.MatchString(email) {
		fe["email"] = "please enter a valid email address"
	}
	if len(password) < PasswordMinLength {
		fe["password"] = fmt.Sprintf("password must be at least %d characters", PasswordMinLength)
	}
	if password != confirm {
		fe["confirmPassword"] = "passwords do not match"
	}

	return fe.errOrNil()
}

// ValidateLogin checks login credentials before contacting the server.
func ValidateLogin(email, password string) error {
	fe := FieldErrors{}

	if !emailPattern.MatchString(email) {
		fe["email"] = "please enter a valid email address"
	}
	if password == "" {
		fe["password"] = "password is required"
	}

	return fe.errOrNil()
}

// tagPattern matches anything that looks like an HTML tag.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize strips HTML tags and stray angle brackets from free-text input.
// Applied to titles, descriptions, and comments before they are sent, so a
// compromised or buggy peer viewing the raw text can't be handed markup.
func Sanitize(input string) string {
	out := tagPattern.ReplaceAllString(input, "")
	out = strings.NewReplacer("<", "", ">", "").Replace(out)
	return strings.TrimSpace(out)
}
