package model

// IssueDraft is the client-side shape of an issue being created or edited.
//
// It exists separately from Issue because the server owns everything else:
// ID, status, counters, reporter, and timestamps are assigned remotely and
// must never be sent by the client. Drafts are validated locally (see
// internal/validate) before any network call is made.
type IssueDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Tags        []string `json:"tags,omitempty"`
	PhotoURLs   []string `json:"photos,omitempty"`
	Location    Location `json:"location"`
}
