package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/urbanpatch/urbanpatch-go/internal/model"
	"github.com/urbanpatch/urbanpatch-go/internal/validate"
)

func commentsPath(issueID string) string {
	return "/issues/" + url.PathEscape(issueID) + "/comments"
}

// commentEnvelope wraps single-comment responses: {"comment": {...}}.
type commentEnvelope struct {
	Comment model.Comment `json:"comment"`
}

// ListComments returns an issue's comments, oldest first. Public.
func (c *Client) ListComments(ctx context.Context, issueID string) ([]model.Comment, error) {
	var out struct {
		Comments []model.Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, commentsPath(issueID), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Comments == nil {
		out.Comments = []model.Comment{}
	}
	return out.Comments, nil
}

// CreateComment posts a comment on an issue. Text is validated (1–500
// chars) and sanitized before the request is made.
func (c *Client) CreateComment(ctx context.Context, issueID, text string) (*model.Comment, error) {
	if err := validate.ValidateComment(text); err != nil {
		return nil, err
	}

	body := struct {
		Text string `json:"text"`
	}{validate.Sanitize(text)}

	var out commentEnvelope
	if err := c.do(ctx, http.MethodPost, commentsPath(issueID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

// UpdateComment edits a comment's text.
//
// Note: there is no comment:updated real-time event, so other clients only
// see the edit after they reload the thread. The binding exists because the
// endpoint does; treat comments as effectively append-only.
func (c *Client) UpdateComment(ctx context.Context, issueID, commentID, text string) (*model.Comment, error) {
	if err := validate.ValidateComment(text); err != nil {
		return nil, err
	}

	body := struct {
		Text string `json:"text"`
	}{validate.Sanitize(text)}

	var out commentEnvelope
	err := c.do(ctx, http.MethodPut, commentsPath(issueID)+"/"+url.PathEscape(commentID), nil, body, &out)
	if err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

// DeleteComment removes a comment. Author or moderator only.
func (c *Client) DeleteComment(ctx context.Context, issueID, commentID string) error {
	return c.do(ctx, http.MethodDelete, commentsPath(issueID)+"/"+url.PathEscape(commentID), nil, nil, nil)
}
