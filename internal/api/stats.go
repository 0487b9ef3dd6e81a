package api

import (
	"context"
	"net/http"
	"net/url"
)

// Stats is the service-wide dashboard summary from GET /stats.
type Stats struct {
	TotalIssues    int `json:"totalIssues"`
	OpenIssues     int `json:"openIssues"`
	VerifiedIssues int `json:"verifiedIssues"`
	ClosedIssues   int `json:"closedIssues"`
	TotalUpvotes   int `json:"totalUpvotes"`
	TotalComments  int `json:"totalComments"`
}

// UserStats summarizes one user's activity.
type UserStats struct {
	IssuesReported int `json:"issuesReported"`
	UpvotesGiven   int `json:"upvotesGiven"`
	CommentsPosted int `json:"commentsPosted"`
}

// GetStats returns the service-wide summary.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserStats returns one user's activity summary.
func (c *Client) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	var out UserStats
	if err := c.do(ctx, http.MethodGet, "/stats/user/"+url.PathEscape(userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
