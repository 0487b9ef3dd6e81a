package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// staticTokens is a TokenProvider with a fixed answer.
type staticTokens struct {
	token string
}

func (s staticTokens) Token() (string, bool) {
	return s.token, s.token != ""
}

// newTestClient spins a chi-routed fake API and a Client pointed at it.
// chi here mirrors the real server's routing, so path params behave the
// same way they do in production.
func newTestClient(t *testing.T, tokens TokenProvider, register func(r chi.Router)) *Client {
	t.Helper()

	r := chi.NewRouter()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL: srv.URL + "/api",
		Tokens:  tokens,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, staticTokens{token: "tok-123"}, func(r chi.Router) {
		r.Get("/api/issues", func(w http.ResponseWriter, req *http.Request) {
			gotAuth = req.Header.Get("Authorization")
			w.Write([]byte(`{"issues":[],"pagination":{"page":1,"limit":20,"total":0,"pages":0}}`))
		})
	})

	_, err := c.ListIssues(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestNoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, staticTokens{}, func(r chi.Router) {
		r.Get("/api/issues", func(w http.ResponseWriter, req *http.Request) {
			gotAuth = req.Header.Get("Authorization")
			w.Write([]byte(`{"issues":[],"pagination":{}}`))
		})
	})

	_, err := c.ListIssues(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "unauthenticated requests must not carry an Authorization header")
}

func TestUnauthorizedFiresHookAndClassifies(t *testing.T) {
	var hookCalls atomic.Int32

	r := chi.NewRouter()
	r.Get("/api/auth/me", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:        srv.URL + "/api",
		OnUnauthorized: func() { hookCalls.Add(1) },
	})
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized), "401 should map to ErrUnauthorized")
	assert.Equal(t, int32(1), hookCalls.Load(), "OnUnauthorized should fire exactly once")
	assert.Equal(t, "valid authentication required", err.Error())
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"403 forbidden", http.StatusForbidden, apperror.ErrForbidden},
		{"404 not found", http.StatusNotFound, apperror.ErrNotFound},
		{"409 conflict", http.StatusConflict, apperror.ErrConflict},
		{"500 remote", http.StatusInternalServerError, apperror.ErrRemote},
		{"418 remote", http.StatusTeapot, apperror.ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, nil, func(r chi.Router) {
				r.Get("/api/issues/{id}", func(w http.ResponseWriter, req *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error":"x","message":"nope"}`))
				})
			})

			_, err := c.GetIssue(context.Background(), "abc")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "status %d should map to %v, got %v", tt.status, tt.want, err)
		})
	}
}

func TestErrorWithoutBodyGetsGenericMessage(t *testing.T) {
	c := newTestClient(t, nil, func(r chi.Router) {
		r.Get("/api/issues/{id}", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>gateway error</html>"))
		})
	})

	_, err := c.GetIssue(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502", "generic message should mention the status")
}

func TestListIssuesDecodesPage(t *testing.T) {
	c := newTestClient(t, nil, func(r chi.Router) {
		r.Get("/api/issues", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "high", req.URL.Query().Get("severity"))
			assert.Equal(t, "2", req.URL.Query().Get("page"))
			w.Write([]byte(`{
				"issues": [{"id":"i1","title":"Pothole on Main","severity":"high","status":"open","upvotes":3,"upvoterIds":["u1"]}],
				"pagination": {"page":2,"limit":20,"total":45,"pages":3}
			}`))
		})
	})

	page, err := c.ListIssues(context.Background(), ListOptions{Severity: model.SeverityHigh, Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Issues, 1)
	assert.Equal(t, "i1", page.Issues[0].ID)
	assert.True(t, page.Issues[0].UpvotedBy("u1"))
	assert.Equal(t, model.Pagination{Page: 2, Limit: 20, Total: 45, Pages: 3}, page.Pagination)
}

func TestUpvoteIssueDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, staticTokens{token: "t"}, func(r chi.Router) {
		r.Post("/api/issues/{id}/upvote", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "i1", chi.URLParam(req, "id"))
			w.Write([]byte(`{"issue":{"id":"i1","upvotes":4,"upvoterIds":["u1","u2"]}}`))
		})
	})

	issue, err := c.UpvoteIssue(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 4, issue.Upvotes)
	assert.Equal(t, []string{"u1", "u2"}, issue.UpvoterIDs)
}

func TestCreateCommentValidatesBeforeNetwork(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, staticTokens{token: "t"}, func(r chi.Router) {
		r.Post("/api/issues/{id}/comments", func(w http.ResponseWriter, req *http.Request) {
			requests.Add(1)
			w.Write([]byte(`{"comment":{"id":"c1"}}`))
		})
	})

	_, err := c.CreateComment(context.Background(), "i1", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, int32(0), requests.Load(), "invalid comment must not reach the server")
}

func TestLoginValidatesBeforeNetwork(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, nil, func(r chi.Router) {
		r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
			requests.Add(1)
		})
	})

	_, err := c.Login(context.Background(), Credentials{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, int32(0), requests.Load())
}

func TestExportIssuesStreams(t *testing.T) {
	c := newTestClient(t, nil, func(r chi.Router) {
		r.Get("/api/issues/export", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "csv", req.URL.Query().Get("format"))
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("id,title\ni1,Pothole on Main\n"))
		})
	})

	var buf bytes.Buffer
	err := c.ExportIssues(context.Background(), "csv", &buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "id,title"))
}

func TestExportIssuesRejectsUnknownFormat(t *testing.T) {
	c := newTestClient(t, nil, func(r chi.Router) {})

	err := c.ExportIssues(context.Background(), "xml", &bytes.Buffer{})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
