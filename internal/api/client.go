// Package api contains the typed REST bindings for the UrbanPatch service.
//
// This is the only package that sees raw JSON. Every endpoint has an
// explicit request/response contract declared as a struct and decoded right
// here at the boundary — downstream code (store, CLI) works with
// internal/model values and never probes a response for maybe-present
// fields.
//
// Error contract: any non-2xx response or transport failure becomes an
// *apperror.AppError whose Message is safe to show the user. The status
// code picks the sentinel (401 → ErrUnauthorized, 403 → ErrForbidden,
// 404 → ErrNotFound, 409 → ErrConflict, anything else → ErrRemote). The
// client never retries — retry is the caller's (usually the human's) call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
)

// TokenProvider supplies the current bearer token, if any. The session
// store implements this; tests use a literal func or struct.
type TokenProvider interface {
	Token() (token string, ok bool)
}

// Config holds everything needed to construct a Client.
type Config struct {
	// BaseURL is the versioned API base, e.g. "http://localhost:5000/api".
	BaseURL string

	// HTTPClient is used for all requests. If nil, http.DefaultClient is
	// used. The client's Timeout is respected as-is.
	HTTPClient *http.Client

	// Tokens supplies the bearer credential. Nil means every request goes
	// out unauthenticated (public reads still work).
	Tokens TokenProvider

	// OnUnauthorized is invoked whenever the server answers 401. The CLI
	// wires this to session.Clear so a dead token is dropped immediately.
	// May be nil.
	OnUnauthorized func()

	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
}

// Client is the UrbanPatch REST client. Safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	onUnauthorized func()
	logger         *slog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Wrap the transport so the bearer token is attached on every request
	// that has one available. We keep the caller's client (and its
	// timeout) and only swap the RoundTripper.
	if cfg.Tokens != nil {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *httpClient
		wrapped.Transport = &bearerTransport{tokens: cfg.Tokens, base: base}
		httpClient = &wrapped
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     httpClient,
		onUnauthorized: cfg.OnUnauthorized,
		logger:         logger,
	}, nil
}

// bearerTransport attaches "Authorization: Bearer <token>" when a token is
// stored, and passes the request through untouched when none is. The
// attach itself is delegated to oauth2.Transport, which also guards
// against mutating the caller's request (it clones before setting the
// header).
type bearerTransport struct {
	tokens TokenProvider
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := t.tokens.Token()
	if !ok {
		return t.base.RoundTrip(req)
	}

	authed := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   t.base,
	}
	return authed.RoundTrip(req)
}

// errorBody is the wire shape of every error response:
// {"error": "not_found", "message": "issue not found with id abc"}.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs one request and decodes the response into out (which may be
// nil for endpoints with no interesting body). query may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("api: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Remote("Network error. Please check your connection.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperror.Remote("The server sent an unexpected response.",
				fmt.Errorf("decoding %s %s response: %w", method, path, err))
		}
	}
	return nil
}

// decodeError turns a non-2xx response into the matching AppError and
// fires the 401 hook when the credential was rejected.
func (c *Client) decodeError(resp *http.Response) error {
	var eb errorBody
	// Best effort — a proxy may answer with HTML. A failed decode just
	// means we fall back to a generic message.
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb)

	message := eb.Message
	if message == "" {
		message = fmt.Sprintf("The server rejected the request (%s).", resp.Status)
	}

	c.logger.Debug("request failed",
		slog.String("url", resp.Request.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("message", message),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apperror.Unauthorized(message)
	case http.StatusForbidden:
		return apperror.Forbidden(message)
	case http.StatusNotFound:
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: message}
	case http.StatusConflict:
		return &apperror.AppError{Err: apperror.ErrConflict, Message: message}
	default:
		return apperror.Remote(message, nil)
	}
}
