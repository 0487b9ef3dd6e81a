package store

import (
	"context"

	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// pendingMutation is one optimistic change in flight: the snapshot taken
// before the speculative edit, kept around until the server answers. On
// success the server's record replaces everything; on failure the snapshot
// is restored byte for byte. Either way the pending state is gone — there
// is no half-committed issue.
type pendingMutation struct {
	id       string
	snapshot model.Issue
}

// Upvote toggles the signed-in user's vote with optimistic feedback: the
// local copy flips immediately, then the server's answer either confirms
// (its record replaces the speculation) or rejects (the pre-mutation
// snapshot is restored exactly).
//
// The server is also a toggle, so the speculation mirrors it: if UserID is
// already in UpvoterIDs the vote is removed, otherwise added.
func (s *IssueStore) Upvote(ctx context.Context, id string) (*model.Issue, error) {
	pending, err := s.beginUpvote(id)
	if err != nil {
		return nil, err
	}

	issue, err := s.api.UpvoteIssue(ctx, id)
	if err != nil {
		s.rollback(pending)
		return nil, err
	}

	s.commit(pending, *issue)
	return issue, nil
}

// beginUpvote snapshots the issue and applies the speculative toggle,
// all under the lock. The network call happens after this returns.
func (s *IssueStore) beginUpvote(id string) (pendingMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return pendingMutation{}, errNotLoaded(id)
	}

	pending := pendingMutation{id: id, snapshot: *s.issues[i].Clone()}

	issue := &s.issues[i]
	if issue.UpvotedBy(s.userID) {
		issue.UpvoterIDs = without(issue.UpvoterIDs, s.userID)
		issue.Upvotes--
	} else {
		// Copy-on-write: the slice may be shared with snapshots handed out
		// by Issues(), so never append in place.
		ids := make([]string, 0, len(issue.UpvoterIDs)+1)
		ids = append(ids, issue.UpvoterIDs...)
		issue.UpvoterIDs = append(ids, s.userID)
		issue.Upvotes++
	}

	return pending, nil
}

// commit replaces the speculative copy with the server's record. If the
// issue vanished while the request was in flight (a concurrent deletion
// event), the confirmation is for a row we no longer show — drop it
// rather than resurrect the issue.
func (s *IssueStore) commit(pending pendingMutation, confirmed model.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.replace(confirmed) {
		s.logger.Debug("dropping confirmation for issue no longer in store",
			"issue_id", pending.id)
	}
}

// rollback restores the snapshot. Same caveat as commit: if the issue was
// deleted mid-flight there is nothing to restore into, and putting the
// snapshot back would resurrect a deleted issue.
func (s *IssueStore) rollback(pending pendingMutation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.replace(pending.snapshot) {
		s.logger.Debug("skipping rollback for issue no longer in store",
			"issue_id", pending.id)
	}
}

// without returns ids minus the first occurrence of id, never mutating
// the input.
func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
