package api

import (
	"context"
	"net/http"

	"github.com/urbanpatch/urbanpatch-go/internal/model"
	"github.com/urbanpatch/urbanpatch-go/internal/validate"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by both login and register: the opaque bearer
// token plus the account it belongs to.
type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for a token. Credentials are validated
// locally first — an obviously bad email never costs a round trip.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	if err := validate.ValidateLogin(creds.Email, creds.Password); err != nil {
		return nil, err
	}

	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first token. confirm is the
// repeated password from the form; it never goes over the wire.
func (c *Client) Register(ctx context.Context, reg Registration, confirm string) (*AuthResult, error) {
	if err := validate.ValidateRegistration(reg.Name, reg.Email, reg.Password, confirm); err != nil {
		return nil, err
	}

	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// userEnvelope wraps single-user responses: {"user": {...}}.
type userEnvelope struct {
	User model.User `json:"user"`
}

// Me returns the authenticated account. Requires a stored token.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ProfileUpdate carries the editable profile fields. Empty fields are
// omitted and left unchanged server-side.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UpdateProfile edits the authenticated account.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, "/auth/profile", nil, update, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ChangePassword rotates the account password. The server invalidates
// nothing — the current token keeps working until it expires.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}{current, next}

	return c.do(ctx, http.MethodPut, "/auth/change-password", nil, body, nil)
}
