package model

import "time"

// Comment belongs to exactly one issue (IssueID is a foreign key, comments
// are never embedded in the Issue payload).
//
// Comments are append-only from the client's point of view: the remote API
// exposes an update endpoint, but no comment:updated event exists, so an
// edit only becomes visible after the thread is reloaded.
type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId"`
	Text      string    `json:"text"`
	Author    UserRef   `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
