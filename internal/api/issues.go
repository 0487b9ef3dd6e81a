package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// ListOptions are the filter/sort/pagination parameters of GET /issues.
// Zero values are omitted from the query string.
type ListOptions struct {
	Severity model.Severity
	Status   model.Status
	Tag      string
	Search   string
	Sort     string // "recent" (default), "popular", "severity", "oldest"
	Page     int
	Limit    int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Severity != "" {
		q.Set("severity", string(o.Severity))
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.Tag != "" {
		q.Set("tag", o.Tag)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	return q
}

// IssuePage is one page of a filtered issue query.
type IssuePage struct {
	Issues     []model.Issue    `json:"issues"`
	Pagination model.Pagination `json:"pagination"`
}

// issueEnvelope wraps single-issue responses: {"issue": {...}}.
type issueEnvelope struct {
	Issue model.Issue `json:"issue"`
}

// ListIssues fetches one page of issues. Public — no token required.
func (c *Client) ListIssues(ctx context.Context, opts ListOptions) (*IssuePage, error) {
	var out IssuePage
	if err := c.do(ctx, http.MethodGet, "/issues", opts.query(), nil, &out); err != nil {
		return nil, err
	}
	if out.Issues == nil {
		out.Issues = []model.Issue{}
	}
	return &out, nil
}

// GetIssue fetches a single issue. Public. The server counts this as a
// view, so Views in the response may already include this call.
func (c *Client) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	var out issueEnvelope
	if err := c.do(ctx, http.MethodGet, "/issues/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// CreateIssue reports a new issue. The caller (the store) has already
// validated the draft.
func (c *Client) CreateIssue(ctx context.Context, draft model.IssueDraft) (*model.Issue, error) {
	var out issueEnvelope
	if err := c.do(ctx, http.MethodPost, "/issues", nil, draft, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// UpdateIssue edits an issue. Owner or moderator only — the server is the
// enforcement point, a 403 comes back as apperror.ErrForbidden.
func (c *Client) UpdateIssue(ctx context.Context, id string, draft model.IssueDraft) (*model.Issue, error) {
	var out issueEnvelope
	if err := c.do(ctx, http.MethodPut, "/issues/"+url.PathEscape(id), nil, draft, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// DeleteIssue removes an issue.
func (c *Client) DeleteIssue(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/issues/"+url.PathEscape(id), nil, nil, nil)
}

// UpvoteIssue toggles the caller's upvote and returns the authoritative
// record: if the caller had already upvoted, the server removes the vote.
func (c *Client) UpvoteIssue(ctx context.Context, id string) (*model.Issue, error) {
	var out issueEnvelope
	if err := c.do(ctx, http.MethodPost, "/issues/"+url.PathEscape(id)+"/upvote", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// VerifyIssue transitions an open issue to verified. Moderator only.
func (c *Client) VerifyIssue(ctx context.Context, id string) (*model.Issue, error) {
	var out issueEnvelope
	if err := c.do(ctx, http.MethodPut, "/issues/"+url.PathEscape(id)+"/verify", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// CloseIssue transitions an issue to closed with the given reason.
// Moderator only. The caller has already validated the reason.
func (c *Client) CloseIssue(ctx context.Context, id, reason string) (*model.Issue, error) {
	body := struct {
		Reason string `json:"reason"`
	}{reason}

	var out issueEnvelope
	if err := c.do(ctx, http.MethodPut, "/issues/"+url.PathEscape(id)+"/close", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// NearbyIssues returns issues within radiusKm of the given point.
func (c *Client) NearbyIssues(ctx context.Context, lat, lng, radiusKm float64) ([]model.Issue, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radiusKm, 'f', -1, 64))

	var out struct {
		Issues []model.Issue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, "/issues/nearby", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Issues, nil
}

// SearchIssues runs a free-text search over titles and descriptions.
func (c *Client) SearchIssues(ctx context.Context, query string) ([]model.Issue, error) {
	q := url.Values{}
	q.Set("q", query)

	var out struct {
		Issues []model.Issue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, "/issues/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Issues, nil
}

// ExportIssues streams a bulk export ("csv" or "geojson") into w. The
// response is opaque bytes, not JSON — it goes straight through.
func (c *Client) ExportIssues(ctx context.Context, format string, w io.Writer) error {
	if format != "csv" && format != "geojson" {
		return apperror.ValidationFailed("format", `export format must be "csv" or "geojson"`)
	}

	q := url.Values{}
	q.Set("format", format)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/issues/export?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("api: building export request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Remote("Network error. Please check your connection.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return apperror.Remote("The export download was interrupted.", err)
	}
	return nil
}
