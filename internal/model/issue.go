// Package model defines the data structures shared by every layer of the
// UrbanPatch client: the REST bindings decode into them, the issue store
// holds them, and the event bridge delivers them.
//
// These are the *decoded* shapes — the API boundary (internal/api) is the
// only place raw JSON is parsed, so nothing downstream ever touches a
// map[string]any or reaches for a missing field with a default. If the
// server adds a field we don't declare here, it is simply dropped at decode
// time.
package model

import "time"

// Severity classifies how urgent a reported issue is.
//
// The values are ordered: Weight() maps them onto 1–4 so callers can sort
// by severity without string comparisons.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight returns the ascending severity weight (low=1 ... critical=4).
// Unknown severities weigh 0, which sorts them below every valid value.
func (s Severity) Weight() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Valid reports whether s is one of the four defined severity levels.
func (s Severity) Valid() bool {
	return s.Weight() != 0
}

// Status is the moderation state of an issue.
//
// Transitions are forward-only:
//
//	open → verified → closed
//	open → closed
//
// A closed issue never reopens. CanTransition encodes this so both the
// store and the mock server enforce the same rule.
type Status string

const (
	StatusOpen     Status = "open"
	StatusVerified Status = "verified"
	StatusClosed   Status = "closed"
)

// Valid reports whether s is one of the three defined statuses.
func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusVerified || s == StatusClosed
}

// CanTransition reports whether an issue in status s may move to status to.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusOpen:
		return to == StatusVerified || to == StatusClosed
	case StatusVerified:
		return to == StatusClosed
	}
	return false
}

// Location is a WGS84 coordinate pair for the map marker.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are inside the representable range
// (latitude ±90, longitude ±180).
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// UserRef is the lightweight reporter/author reference embedded in issues
// and comments. The full User record lives behind /auth/me.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issue is a reported neighborhood problem.
//
// INVARIANT: in server-confirmed state, Upvotes equals len(UpvoterIDs).
// During an optimistic upvote the two move together locally, but an
// issue:upvoted event updates only Upvotes — membership is corrected by the
// next server response or fetch. UI code derives "did I upvote this?" from
// UpvotedBy, never from the count.
type Issue struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Severity     Severity  `json:"severity"`
	Status       Status    `json:"status"`
	Tags         []string  `json:"tags"`
	PhotoURLs    []string  `json:"photos"`
	Location     Location  `json:"location"`
	Upvotes      int       `json:"upvotes"`
	UpvoterIDs   []string  `json:"upvoterIds"`
	Views        int       `json:"views"`
	CommentCount int       `json:"commentCount"`
	ReportedBy   UserRef   `json:"reportedBy"`
	CreatedAt    time.Time `json:"createdAt"`
	// CloseReason is set only when Status is StatusClosed.
	CloseReason string `json:"closeReason,omitempty"`
}

// UpvotedBy reports whether userID is in the upvoter set. Membership, not
// the count, is authoritative for toggle direction.
func (i *Issue) UpvotedBy(userID string) bool {
	for _, id := range i.UpvoterIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the issue.
//
// The store hands out copies and takes snapshots for optimistic rollback;
// a shallow copy would alias the Tags/PhotoURLs/UpvoterIDs slices and let a
// later in-place mutation corrupt the snapshot.
func (i *Issue) Clone() *Issue {
	c := *i
	c.Tags = append([]string(nil), i.Tags...)
	c.PhotoURLs = append([]string(nil), i.PhotoURLs...)
	c.UpvoterIDs = append([]string(nil), i.UpvoterIDs...)
	return &c
}

// Pagination describes the server-side query window of the last fetch.
//
// It is owned by the issue store and recomputed only on a successful fetch.
// Real-time events deliberately do NOT touch it — after an issue:deleted
// event Total is stale until the next fetch, and that staleness is part of
// the documented contract.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
