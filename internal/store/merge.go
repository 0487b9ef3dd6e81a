package store

import "github.com/urbanpatch/urbanpatch-go/internal/model"

// Event merges. Every Apply is idempotent and tolerates events about
// issues the store doesn't hold: events arrive for the whole service, but
// the store only shows the fetched page, so "unknown id" is the common
// case and never an error. None of them touch Pagination — the server's
// counts are only trustworthy at fetch time.

// ApplyCreated prepends a newly reported issue. If the issue is already
// present — our own creation, or a duplicate delivery — nothing changes.
func (s *IssueStore) ApplyCreated(issue model.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertFront(issue)
}

// ApplyUpdated replaces the local copy with the event's record. Unknown
// issues are ignored, not inserted: an update for an issue outside the
// fetched page doesn't belong in the list.
func (s *IssueStore) ApplyUpdated(issue model.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(issue)
}

// ApplyDeleted removes the issue if present.
func (s *IssueStore) ApplyDeleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
}

// ApplyUpvoted sets the vote count and nothing else. The event carries
// only the count — it doesn't say who voted, so UpvoterIDs is left alone
// and the local user's own upvote state stays intact.
func (s *IssueStore) ApplyUpvoted(id string, upvotes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return
	}
	s.issues[i].Upvotes = upvotes
}
