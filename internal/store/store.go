// Package store holds the client-side issue list and keeps it consistent
// across three writers: explicit fetches, the caller's own mutations
// (applied optimistically), and real-time events from other users.
//
// Concurrency model: one mutex guards the whole store, and it is NEVER
// held across a network call. Mutations take the lock to snapshot and
// speculate, release it for the round-trip, then take it again to commit
// or roll back. Event handlers take it only for the merge. Deadlock-free
// by construction, at the cost of admitting that the list can change
// between the two critical sections — the commit/rollback paths handle
// that explicitly.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/urbanpatch/urbanpatch-go/internal/api"
	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/events"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
	"github.com/urbanpatch/urbanpatch-go/internal/validate"
)

// RemoteIssues is the slice of the API client the store depends on.
// Narrowed to an interface so tests can drive the store with a scripted
// fake instead of an HTTP server.
type RemoteIssues interface {
	ListIssues(ctx context.Context, opts api.ListOptions) (*api.IssuePage, error)
	CreateIssue(ctx context.Context, draft model.IssueDraft) (*model.Issue, error)
	UpdateIssue(ctx context.Context, id string, draft model.IssueDraft) (*model.Issue, error)
	DeleteIssue(ctx context.Context, id string) error
	UpvoteIssue(ctx context.Context, id string) (*model.Issue, error)
	VerifyIssue(ctx context.Context, id string) (*model.Issue, error)
	CloseIssue(ctx context.Context, id, reason string) (*model.Issue, error)
}

var _ RemoteIssues = (*api.Client)(nil)

// Config holds the store's dependencies.
type Config struct {
	// API performs the remote calls. Required.
	API RemoteIssues

	// UserID identifies the signed-in user. It drives the speculative
	// upvote toggle (whose vote is being added or removed). Empty for an
	// anonymous session, which can read but not mutate anyway.
	UserID string

	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
}

// IssueStore is the in-memory issue list. Safe for concurrent use.
type IssueStore struct {
	api    RemoteIssues
	userID string
	logger *slog.Logger

	mu         sync.Mutex
	issues     []model.Issue
	pagination model.Pagination
}

// New creates an empty store. Call Fetch to populate it.
func New(cfg Config) *IssueStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueStore{
		api:    cfg.API,
		userID: cfg.UserID,
		logger: logger,
		issues: []model.Issue{},
	}
}

// Fetch loads one page of issues from the server, replacing the local
// list and pagination wholesale.
func (s *IssueStore) Fetch(ctx context.Context, opts api.ListOptions) error {
	page, err := s.api.ListIssues(ctx, opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = page.Issues
	s.pagination = page.Pagination
	return nil
}

// Create validates the draft locally, reports the issue, and prepends the
// server's record. Validation failures never reach the network.
//
// The prepend checks for presence first: the creation event for our own
// issue may race the HTTP response, and whichever lands second must not
// duplicate the row.
func (s *IssueStore) Create(ctx context.Context, draft model.IssueDraft) (*model.Issue, error) {
	if err := validate.ValidateIssueDraft(draft); err != nil {
		return nil, err
	}

	issue, err := s.api.CreateIssue(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertFront(*issue)
	return issue, nil
}

// Update validates the draft, sends the edit, and replaces the local copy
// with the server's record.
func (s *IssueStore) Update(ctx context.Context, id string, draft model.IssueDraft) (*model.Issue, error) {
	if err := validate.ValidateIssueDraft(draft); err != nil {
		return nil, err
	}

	issue, err := s.api.UpdateIssue(ctx, id, draft)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(*issue)
	return issue, nil
}

// Delete removes the issue remotely, then locally. The local removal is
// idempotent with the deletion event echo.
func (s *IssueStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteIssue(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
	return nil
}

// Verify asks the server to mark the issue verified and merges the result.
// The server enforces both the moderator requirement and the status
// transition rules; the store just surfaces the outcome.
func (s *IssueStore) Verify(ctx context.Context, id string) (*model.Issue, error) {
	issue, err := s.api.VerifyIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(*issue)
	return issue, nil
}

// Close asks the server to close the issue with a reason. The reason is
// validated locally first.
func (s *IssueStore) Close(ctx context.Context, id, reason string) (*model.Issue, error) {
	if err := validate.ValidateCloseReason(reason); err != nil {
		return nil, err
	}

	issue, err := s.api.CloseIssue(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(*issue)
	return issue, nil
}

// Get returns a copy of one issue.
func (s *IssueStore) Get(id string) (model.Issue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.issues {
		if s.issues[i].ID == id {
			return *s.issues[i].Clone(), true
		}
	}
	return model.Issue{}, false
}

// Issues returns a copy of the current list in display order. Callers own
// the copy; events arriving later won't mutate it under them.
func (s *IssueStore) Issues() []model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Issue, len(s.issues))
	for i := range s.issues {
		out[i] = *s.issues[i].Clone()
	}
	return out
}

// Pagination returns the pagination of the last Fetch. It reflects the
// server's counts at fetch time; events merged since then do not adjust
// it. Refresh with Fetch when the count matters.
func (s *IssueStore) Pagination() model.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// Bind subscribes the store to issue events so remote changes merge in as
// they happen. Close the returned subscription to detach.
func (s *IssueStore) Bind(b *events.Bridge) *events.Subscription {
	return b.SubscribeIssues(events.IssueHandlers{
		OnCreated: s.ApplyCreated,
		OnUpdated: s.ApplyUpdated,
		OnDeleted: s.ApplyDeleted,
		OnUpvoted: s.ApplyUpvoted,
	})
}

// insertFront prepends the issue unless it is already present. Callers
// hold the lock.
func (s *IssueStore) insertFront(issue model.Issue) {
	for i := range s.issues {
		if s.issues[i].ID == issue.ID {
			return
		}
	}
	s.issues = append([]model.Issue{issue}, s.issues...)
}

// replace swaps the stored copy for issue if an entry with the same ID
// exists; unknown IDs are ignored. Callers hold the lock.
func (s *IssueStore) replace(issue model.Issue) bool {
	for i := range s.issues {
		if s.issues[i].ID == issue.ID {
			s.issues[i] = issue
			return true
		}
	}
	return false
}

// remove drops the issue if present. Callers hold the lock.
func (s *IssueStore) remove(id string) {
	for i := range s.issues {
		if s.issues[i].ID == id {
			s.issues = append(s.issues[:i], s.issues[i+1:]...)
			return
		}
	}
}

// find returns the index of the issue, or -1. Callers hold the lock.
func (s *IssueStore) find(id string) int {
	for i := range s.issues {
		if s.issues[i].ID == id {
			return i
		}
	}
	return -1
}

// errNotLoaded reports an operation on an issue the store doesn't hold.
func errNotLoaded(id string) error {
	return apperror.NotFound("issue", id)
}
