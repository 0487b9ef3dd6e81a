package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// validDraft returns a draft that passes every rule. Tests mutate one field
// at a time so each failure is attributable.
func validDraft() model.IssueDraft {
	return model.IssueDraft{
		Title:       "Broken street lamp",
		Description: "The lamp at the corner of 5th and Main has been dark for a week.",
		Severity:    model.SeverityMedium,
		Tags:        []string{"broken lamp", "safety"},
		Location:    model.Location{Lat: 20.2961, Lng: 85.8245},
	}
}

func TestValidateIssueDraft_Valid(t *testing.T) {
	if err := ValidateIssueDraft(validDraft()); err != nil {
		t.Fatalf("ValidateIssueDraft() error = %v, want nil", err)
	}
}

func TestValidateIssueDraft_FieldFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*model.IssueDraft)
		wantField string
	}{
		{
			name:      "title too short",
			mutate:    func(d *model.IssueDraft) { d.Title = "Bad" },
			wantField: "title",
		},
		{
			name:      "title too long",
			mutate:    func(d *model.IssueDraft) { d.Title = strings.Repeat("x", TitleMaxLength+1) },
			wantField: "title",
		},
		{
			name:      "whitespace-only title",
			mutate:    func(d *model.IssueDraft) { d.Title = "        " },
			wantField: "title",
		},
		{
			name:      "description too short",
			mutate:    func(d *model.IssueDraft) { d.Description = "short" },
			wantField: "description",
		},
		{
			name:      "description too long",
			mutate:    func(d *model.IssueDraft) { d.Description = strings.Repeat("x", DescriptionMaxLength+1) },
			wantField: "description",
		},
		{
			name:      "unknown severity",
			mutate:    func(d *model.IssueDraft) { d.Severity = "catastrophic" },
			wantField: "severity",
		},
		{
			name:      "latitude out of range",
			mutate:    func(d *model.IssueDraft) { d.Location.Lat = 91 },
			wantField: "location",
		},
		{
			name:      "longitude out of range",
			mutate:    func(d *model.IssueDraft) { d.Location.Lng = -181 },
			wantField: "location",
		},
		{
			name:      "empty tag",
			mutate:    func(d *model.IssueDraft) { d.Tags = []string{"pothole", "  "} },
			wantField: "tags",
		},
		{
			name:      "tag too long",
			mutate:    func(d *model.IssueDraft) { d.Tags = []string{strings.Repeat("t", TagMaxLength+1)} },
			wantField: "tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			tt.mutate(&draft)

			err := ValidateIssueDraft(draft)
			if err == nil {
				t.Fatal("ValidateIssueDraft() = nil, want error")
			}
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}

			var fe FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not FieldErrors", err)
			}
			if _, ok := fe[tt.wantField]; !ok {
				t.Errorf("FieldErrors = %v, missing field %q", fe, tt.wantField)
			}
		})
	}
}

// TestValidateIssueDraft_ReportsAllFields verifies that a draft with two
// bad fields reports both in one pass — no network call, no first-error-only
// behavior. (Title "Bad" and description "short" are the canonical pair.)
func TestValidateIssueDraft_ReportsAllFields(t *testing.T) {
	draft := validDraft()
	draft.Title = "Bad"
	draft.Description = "short"

	err := ValidateIssueDraft(draft)
	if err == nil {
		t.Fatal("ValidateIssueDraft() = nil, want error")
	}

	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("error %T is not FieldErrors", err)
	}
	if _, ok := fe["title"]; !ok {
		t.Error("missing title error")
	}
	if _, ok := fe["description"]; !ok {
		t.Error("missing description error")
	}
	if len(fe) != 2 {
		t.Errorf("got %d field errors, want 2: %v", len(fe), fe)
	}
}

func TestValidateIssueDraft_EmptyTagsValid(t *testing.T) {
	draft := validDraft()
	draft.Tags = nil
	if err := ValidateIssueDraft(draft); err != nil {
		t.Errorf("draft with no tags should be valid, got %v", err)
	}
}

func TestValidateComment(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"normal comment", "I saw this too, it's getting worse.", false},
		{"single character", "x", false},
		{"at limit", strings.Repeat("y", CommentMaxLength), false},
		{"empty", "", true},
		{"whitespace only", "   \t  ", true},
		{"over limit", strings.Repeat("y", CommentMaxLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComment(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateComment(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidateCloseReason(t *testing.T) {
	if err := ValidateCloseReason("fixed by city crew"); err != nil {
		t.Errorf("non-empty reason should pass, got %v", err)
	}
	if err := ValidateCloseReason("   "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank reason should fail validation, got %v", err)
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name                           string
		userName, email, pass, confirm string
		wantField                      string // empty means valid
	}{
		{"valid", "Ada", "ada@example.com", "hunter22", "hunter22", ""},
		{"short name", "A", "ada@example.com", "hunter22", "hunter22", "name"},
		{"bad email", "Ada", "not-an-email", "hunter22", "hunter22", "email"},
		{"short password", "Ada", "ada@example.com", "abc", "abc", "password"},
		{"mismatched confirm", "Ada", "ada@example.com", "hunter22", "hunter23", "confirmPassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.userName, tt.email, tt.pass, tt.confirm)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("error = %v, want nil", err)
				}
				return
			}

			var fe FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not FieldErrors", err)
			}
			if _, ok := fe[tt.wantField]; !ok {
				t.Errorf("FieldErrors = %v, missing field %q", fe, tt.wantField)
			}
		})
	}
}

func TestValidateLogin(t *testing.T) {
	if err := ValidateLogin("ada@example.com", "secret"); err != nil {
		t.Errorf("valid login should pass, got %v", err)
	}
	if err := ValidateLogin("nope", "secret"); err == nil {
		t.Error("bad email should fail")
	}
	if err := ValidateLogin("ada@example.com", ""); err == nil {
		t.Error("empty password should fail")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"<script>alert(1)</script>hello", "alert(1)hello"},
		// "< b >" parses as a tag and is removed wholesale, matching the
		// original client's behavior.
		{"a < b > c", "a  c"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
