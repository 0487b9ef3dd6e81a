package mockd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime is generous because the primary consumer is a CLI that
// stores the token on disk between invocations. A 15-minute token would
// force a login every coffee break.
const tokenLifetime = 24 * time.Hour

// TokenService signs and validates the HS256 JWTs the API hands out on
// login. The same secret signs and verifies; there is no key rotation in
// a development server.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. Short secrets are rejected
// outright — a guessable secret makes every token forgeable.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("mockd: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

// Generate creates a signed token with the user ID in the subject claim.
func (s *TokenService) Generate(userID string) (string, error) {
	now := time.Now()

	c := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			Issuer:    "urbanpatch",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("mockd: signing token: %w", err)
	}

	return signed, nil
}

// Validate verifies a token and returns the user ID from the subject
// claim. Pinning the algorithm list prevents the classic "alg: none"
// downgrade.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&tokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("mockd: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("urbanpatch"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("mockd: token expired")
		}
		return "", fmt.Errorf("mockd: invalid token: %w", err)
	}

	c, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("mockd: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("mockd: token has no subject")
	}

	return c.Subject, nil
}

// contextKey keeps the userID context value private to this package.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects requests without a valid bearer token. The client
// sends "Authorization: Bearer <jwt>"; the validated user ID lands in the
// request context for handlers to read via userIDFromContext.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "valid authentication required",
				})
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present but
// never blocks. Public reads use this so anonymous requests work and
// signed-in ones still carry the caller's ID.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// userIDFromContext returns the authenticated user's ID, or ("", false)
// for an anonymous request.
func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", errors.New("mockd: missing bearer token")
	}
	return tokens.Validate(raw)
}
