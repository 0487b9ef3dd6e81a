// Package session persists the client's credential and cached profile
// between CLI invocations.
//
// The browser client keeps its token in localStorage; a CLI has no such
// thing, so we use a small SQLite file instead. SQLite over a flat file
// buys atomic writes (no half-written token after a crash) and room for
// more cached state later without inventing a file format.
//
// WHY modernc.org/sqlite?
// Pure Go translation of SQLite — no CGo, no C compiler, trivially
// cross-compiled. The driver registers itself as "sqlite" via its init().
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/urbanpatch/urbanpatch-go/internal/model"

	_ "modernc.org/sqlite"
)

// Store holds the bearer token and the cached user profile.
//
// The table is a single row (id is CHECKed to 1) — a session either exists
// or it doesn't, and Clear deletes the row outright.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the session database at path.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: pinging database: %w", err)
	}

	// WAL so a concurrent `urbanpatch watch` holding the session open
	// doesn't block a login in another terminal.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: setting WAL mode: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			token      TEXT NOT NULL DEFAULT '',
			user_json  TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating session table: %w", err)
	}
	return nil
}

// SaveToken stores the bearer token, creating the session row if needed.
func (s *Store) SaveToken(token string) error {
	_, err := s.conn.Exec(`
		INSERT INTO session (id, token, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		token, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("session: saving token: %w", err)
	}
	return nil
}

// Token returns the stored bearer token. ok is false when no session
// exists or the token was cleared.
func (s *Store) Token() (token string, ok bool) {
	err := s.conn.QueryRow(`SELECT token FROM session WHERE id = 1`).Scan(&token)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// SaveUser caches the authenticated user's profile (as returned by
// /auth/me) so `whoami` and role checks work without a network call.
func (s *Store) SaveUser(u *model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session: encoding user: %w", err)
	}

	_, err = s.conn.Exec(`
		INSERT INTO session (id, user_json, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET user_json = excluded.user_json, updated_at = excluded.updated_at`,
		string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("session: saving user: %w", err)
	}
	return nil
}

// User returns the cached profile. ok is false when no profile is cached.
func (s *Store) User() (*model.User, bool) {
	var raw string
	err := s.conn.QueryRow(`SELECT user_json FROM session WHERE id = 1`).Scan(&raw)
	if err != nil || raw == "" {
		return nil, false
	}

	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false
	}
	return &u, true
}

// Clear wipes the session. Called on logout and by the API client's 401
// hook — a rejected credential is useless, keeping it would just repeat
// the 401 on every subsequent request.
func (s *Store) Clear() error {
	if _, err := s.conn.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("session: clearing: %w", err)
	}
	return nil
}

// Identity is what the client can read out of its own token without
// talking to the server.
type Identity struct {
	UserID    string
	ExpiresAt time.Time // zero when the token carries no expiry
}

// Identity decodes the stored token's claims WITHOUT verifying the
// signature. The client does not hold the server's signing secret, so
// verification is impossible here by construction — the server re-verifies
// on every request, this is purely informational (whoami, expiry display).
func (s *Store) Identity() (*Identity, error) {
	token, ok := s.Token()
	if !ok {
		return nil, errors.New("session: no token stored")
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("session: decoding token claims: %w", err)
	}

	id := &Identity{UserID: claims.Subject}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
