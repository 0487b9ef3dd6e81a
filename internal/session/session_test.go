package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.Token(); ok {
		t.Fatal("fresh store should have no token")
	}

	if err := s.SaveToken("tok-abc"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	token, ok := s.Token()
	if !ok || token != "tok-abc" {
		t.Errorf("Token() = (%q, %v), want (tok-abc, true)", token, ok)
	}

	// Saving again overwrites, never duplicates the single row.
	if err := s.SaveToken("tok-def"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	token, _ = s.Token()
	if token != "tok-def" {
		t.Errorf("Token() = %q after overwrite, want tok-def", token)
	}
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.User(); ok {
		t.Fatal("fresh store should have no user")
	}

	u := &model.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: model.RoleModerator}
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}

	got, ok := s.User()
	if !ok {
		t.Fatal("User() should find the cached profile")
	}
	if got.ID != "u1" || got.Name != "Ada" || !got.CanModerate() {
		t.Errorf("User() = %+v, want cached moderator Ada", got)
	}
}

func TestSaveUserKeepsToken(t *testing.T) {
	// Token and profile live in the same row; writing one must not
	// clobber the other.
	s := newTestStore(t)

	if err := s.SaveToken("tok-abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveUser(&model.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}

	token, ok := s.Token()
	if !ok || token != "tok-abc" {
		t.Errorf("Token() = (%q, %v) after SaveUser, want (tok-abc, true)", token, ok)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveToken("tok-abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveUser(&model.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := s.Token(); ok {
		t.Error("token should be gone after Clear")
	}
	if _, ok := s.User(); ok {
		t.Error("user should be gone after Clear")
	}

	// Clearing an already-empty session is fine.
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestIdentity(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Identity(); err == nil {
		t.Error("Identity() should fail with no token")
	}

	// Self-signed token: Identity does not verify signatures, it only
	// decodes claims, so any well-formed HS256 token works here.
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-42",
		ExpiresAt: jwt.NewNumericDate(expiry),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveToken(signed); err != nil {
		t.Fatal(err)
	}

	id, err := s.Identity()
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.UserID != "u-42" {
		t.Errorf("UserID = %q, want u-42", id.UserID)
	}
	if !id.ExpiresAt.Equal(expiry) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, expiry)
	}
}

func TestIdentity_OpaqueToken(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveToken("not-a-jwt"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Identity(); err == nil {
		t.Error("Identity() should fail on a non-JWT token")
	}
}
