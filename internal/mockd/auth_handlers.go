package mockd

import (
	"log/slog"
	"net/http"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
	"github.com/urbanpatch/urbanpatch-go/internal/validate"
)

type authHandler struct {
	db        *DB
	tokens    *TokenService
	passwords *PasswordService
	logger    *slog.Logger
}

// authResponse is the login/register response: the token plus the account.
type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type userEnvelope struct {
	User model.User `json:"user"`
}

// handleRegister creates an account and signs it in. The first registered
// account becomes a moderator so a fresh dev database always has someone
// who can verify and close issues.
func (h *authHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := validate.ValidateRegistration(req.Name, req.Email, req.Password, req.Password); err != nil {
		writeError(w, err)
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	role := model.RoleUser
	if count, err := h.db.UserCount(r.Context()); err == nil && count == 0 {
		role = model.RoleModerator
	}

	user, err := h.db.CreateUser(r.Context(), req.Name, req.Email, hash, role)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user registered", slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)))
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: *user})
}

// handleLogin exchanges credentials for a token. Wrong email and wrong
// password produce the same message so the endpoint doesn't leak which
// emails have accounts.
func (h *authHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := validate.ValidateLogin(req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	badCredentials := apperror.Unauthorized("invalid email or password")

	user, hash, err := h.db.UserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, badCredentials)
		return
	}
	if err := h.passwords.Verify(hash, req.Password); err != nil {
		writeError(w, badCredentials)
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: *user})
}

// handleMe returns the authenticated account.
func (h *authHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	user, err := h.db.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{User: *user})
}

// handleUpdateProfile edits name and/or email. Omitted fields keep their
// current value.
func (h *authHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	current, err := h.db.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	name := req.Name
	if name == "" {
		name = current.Name
	}
	email := req.Email
	if email == "" {
		email = current.Email
	}

	if len(name) < validate.NameMinLength {
		writeError(w, apperror.ValidationFailed("name", "name must be at least 2 characters"))
		return
	}

	user, err := h.db.UpdateProfile(r.Context(), userID, name, email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{User: *user})
}

// handleChangePassword rotates the password after checking the current
// one. Existing tokens stay valid until they expire.
func (h *authHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if len(req.NewPassword) < validate.PasswordMinLength {
		writeError(w, apperror.ValidationFailed("newPassword", "password must be at least 6 characters"))
		return
	}

	hash, err := h.db.PasswordHash(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.passwords.Verify(hash, req.CurrentPassword); err != nil {
		writeError(w, apperror.Unauthorized("current password is incorrect"))
		return
	}

	newHash, err := h.passwords.Hash(req.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.db.SetPasswordHash(r.Context(), userID, newHash); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
