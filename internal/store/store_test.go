package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanpatch/urbanpatch-go/internal/api"
	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// fakeRemote scripts the store's network calls. Each hook is optional;
// unset hooks fail the test if reached.
type fakeRemote struct {
	t *testing.T

	mu          sync.Mutex
	listFn      func(api.ListOptions) (*api.IssuePage, error)
	createFn    func(model.IssueDraft) (*model.Issue, error)
	updateFn    func(string, model.IssueDraft) (*model.Issue, error)
	deleteFn    func(string) error
	upvoteFn    func(string) (*model.Issue, error)
	verifyFn    func(string) (*model.Issue, error)
	closeFn     func(string, string) (*model.Issue, error)
	createCalls int
	upvoteCalls int
}

func (f *fakeRemote) ListIssues(_ context.Context, opts api.ListOptions) (*api.IssuePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listFn == nil {
		f.t.Fatal("unexpected ListIssues call")
	}
	return f.listFn(opts)
}

func (f *fakeRemote) CreateIssue(_ context.Context, draft model.IssueDraft) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createFn == nil {
		f.t.Fatal("unexpected CreateIssue call")
	}
	return f.createFn(draft)
}

func (f *fakeRemote) UpdateIssue(_ context.Context, id string, draft model.IssueDraft) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateFn == nil {
		f.t.Fatal("unexpected UpdateIssue call")
	}
	return f.updateFn(id, draft)
}

func (f *fakeRemote) DeleteIssue(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteFn == nil {
		f.t.Fatal("unexpected DeleteIssue call")
	}
	return f.deleteFn(id)
}

func (f *fakeRemote) UpvoteIssue(_ context.Context, id string) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upvoteCalls++
	if f.upvoteFn == nil {
		f.t.Fatal("unexpected UpvoteIssue call")
	}
	return f.upvoteFn(id)
}

func (f *fakeRemote) VerifyIssue(_ context.Context, id string) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyFn == nil {
		f.t.Fatal("unexpected VerifyIssue call")
	}
	return f.verifyFn(id)
}

func (f *fakeRemote) CloseIssue(_ context.Context, id, reason string) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeFn == nil {
		f.t.Fatal("unexpected CloseIssue call")
	}
	return f.closeFn(id, reason)
}

func testIssue(id string, upvotes int, upvoters ...string) model.Issue {
	return model.Issue{
		ID:         id,
		Title:      "Pothole outside the library",
		Severity:   model.SeverityMedium,
		Status:     model.StatusOpen,
		Tags:       []string{"roads"},
		Upvotes:    upvotes,
		UpvoterIDs: upvoters,
	}
}

// newLoadedStore builds a store already holding the given issues, as if
// Fetch had run.
func newLoadedStore(t *testing.T, userID string, remote *fakeRemote, issues ...model.Issue) *IssueStore {
	t.Helper()
	remote.t = t
	remote.listFn = func(api.ListOptions) (*api.IssuePage, error) {
		return &api.IssuePage{
			Issues:     issues,
			Pagination: model.Pagination{Page: 1, Limit: 20, Total: len(issues), Pages: 1},
		}, nil
	}
	s := New(Config{API: remote, UserID: userID})
	require.NoError(t, s.Fetch(context.Background(), api.ListOptions{}))
	return s
}

func validDraft() model.IssueDraft {
	return model.IssueDraft{
		Title:       "Leaking hydrant on 5th",
		Description: "Water has been pooling at the corner for two days.",
		Severity:    model.SeverityHigh,
		Location:    model.Location{Lat: 40.7, Lng: -74.0},
	}
}

func TestUpvoteAppliesOptimisticallyThenConfirms(t *testing.T) {
	remote := &fakeRemote{}
	confirmed := testIssue("i1", 4, "a", "b", "c", "u2")
	remote.upvoteFn = func(id string) (*model.Issue, error) {
		return &confirmed, nil
	}

	s := newLoadedStore(t, "u2", remote, testIssue("i1", 3, "a", "b", "c"))

	got, err := s.Upvote(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Upvotes)

	stored, ok := s.Get("i1")
	require.True(t, ok)
	assert.Equal(t, confirmed, stored, "server record should replace the speculation")
}

func TestUpvoteRollsBackExactlyOnFailure(t *testing.T) {
	remote := &fakeRemote{}
	remote.upvoteFn = func(id string) (*model.Issue, error) {
		return nil, apperror.Remote("Network error. Please check your connection.", errors.New("dial tcp: timeout"))
	}

	before := testIssue("i1", 3, "a", "b", "c")
	s := newLoadedStore(t, "u2", remote, before)

	_, err := s.Upvote(context.Background(), "i1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRemote))

	after, ok := s.Get("i1")
	require.True(t, ok)
	assert.Equal(t, before, after, "failed upvote must restore the exact pre-mutation state")
}

func TestUpvoteTogglesOffWhenAlreadyVoted(t *testing.T) {
	remote := &fakeRemote{}
	confirmed := testIssue("i1", 2, "a", "b")
	remote.upvoteFn = func(id string) (*model.Issue, error) {
		return &confirmed, nil
	}

	s := newLoadedStore(t, "u2", remote, testIssue("i1", 3, "a", "b", "u2"))

	got, err := s.Upvote(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Upvotes)
	assert.NotContains(t, got.UpvoterIDs, "u2")
}

func TestUpvoteAlternatingSuccessAndFailure(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote, testIssue("i1", 0))

	// Odd attempts succeed (server confirms the toggle), even attempts
	// fail. After each round the store must hold either the confirmed
	// record or the exact pre-attempt state, never a hybrid.
	for round := 1; round <= 6; round++ {
		before, ok := s.Get("i1")
		require.True(t, ok)

		if round%2 == 1 {
			var confirmed model.Issue
			if before.UpvotedBy("u1") {
				confirmed = testIssue("i1", before.Upvotes-1)
			} else {
				confirmed = testIssue("i1", before.Upvotes+1, "u1")
			}
			remote.mu.Lock()
			remote.upvoteFn = func(string) (*model.Issue, error) { return &confirmed, nil }
			remote.mu.Unlock()

			_, err := s.Upvote(context.Background(), "i1")
			require.NoError(t, err, "round %d", round)

			after, _ := s.Get("i1")
			assert.Equal(t, confirmed, after, "round %d should land on the confirmed record", round)
		} else {
			remote.mu.Lock()
			remote.upvoteFn = func(string) (*model.Issue, error) {
				return nil, apperror.Remote("The server rejected the request (500).", nil)
			}
			remote.mu.Unlock()

			_, err := s.Upvote(context.Background(), "i1")
			require.Error(t, err, "round %d", round)

			after, _ := s.Get("i1")
			assert.Equal(t, before, after, "round %d must roll back to the pre-attempt state", round)
		}
	}
}

func TestUpvoteUnknownIssueFailsWithoutNetwork(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote, testIssue("i1", 0))

	_, err := s.Upvote(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Zero(t, remote.upvoteCalls)
}

func TestUpvoteConfirmationDroppedIfIssueDeletedMidFlight(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote, testIssue("i1", 0))

	confirmed := testIssue("i1", 1, "u1")
	remote.upvoteFn = func(string) (*model.Issue, error) {
		// A deletion event lands while the request is in flight.
		s.ApplyDeleted("i1")
		return &confirmed, nil
	}

	_, err := s.Upvote(context.Background(), "i1")
	require.NoError(t, err)

	_, ok := s.Get("i1")
	assert.False(t, ok, "confirmation must not resurrect a deleted issue")
}

func TestCreateValidatesBeforeNetwork(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote)

	draft := validDraft()
	draft.Title = "Bad" // under the 5-char minimum
	draft.Description = "short"

	_, err := s.Create(context.Background(), draft)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Zero(t, remote.createCalls, "invalid draft must not reach the server")
}

func TestCreatePrependsAndDedupesEventEcho(t *testing.T) {
	remote := &fakeRemote{}
	created := testIssue("i-new", 0)
	remote.createFn = func(model.IssueDraft) (*model.Issue, error) {
		return &created, nil
	}

	s := newLoadedStore(t, "u1", remote, testIssue("i-old", 2))

	_, err := s.Create(context.Background(), validDraft())
	require.NoError(t, err)

	// The creation event for our own issue arrives after the response.
	s.ApplyCreated(created)

	issues := s.Issues()
	require.Len(t, issues, 2, "event echo must not duplicate the issue")
	assert.Equal(t, "i-new", issues[0].ID, "new issues go to the front")
	assert.Equal(t, "i-old", issues[1].ID)
}

func TestCreateEventBeforeResponseAlsoDedupes(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote)

	created := testIssue("i-new", 0)
	remote.createFn = func(model.IssueDraft) (*model.Issue, error) {
		// The broadcast beats the HTTP response.
		s.ApplyCreated(created)
		return &created, nil
	}

	_, err := s.Create(context.Background(), validDraft())
	require.NoError(t, err)
	assert.Len(t, s.Issues(), 1)
}

func TestDeleteIdempotentWithEventEcho(t *testing.T) {
	remote := &fakeRemote{}
	remote.deleteFn = func(string) error { return nil }

	s := newLoadedStore(t, "u1", remote, testIssue("i1", 0), testIssue("i2", 0))

	require.NoError(t, s.Delete(context.Background(), "i1"))
	s.ApplyDeleted("i1") // echo
	s.ApplyDeleted("i1") // duplicate delivery

	issues := s.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "i2", issues[0].ID)
}

func TestApplyUpdatedReplacesKnownIgnoresUnknown(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote, testIssue("i1", 0))

	updated := testIssue("i1", 0)
	updated.Title = "Pothole outside the library (now verified)"
	updated.Status = model.StatusVerified
	s.ApplyUpdated(updated)

	got, ok := s.Get("i1")
	require.True(t, ok)
	assert.Equal(t, model.StatusVerified, got.Status)

	s.ApplyUpdated(testIssue("elsewhere", 9))
	assert.Len(t, s.Issues(), 1, "updates for unfetched issues must not be inserted")
}

func TestApplyUpvotedTouchesOnlyTheCount(t *testing.T) {
	remote := &fakeRemote{}
	before := testIssue("i1", 3, "a", "b", "u1")
	s := newLoadedStore(t, "u1", remote, before)

	s.ApplyUpvoted("i1", 4)

	got, ok := s.Get("i1")
	require.True(t, ok)
	assert.Equal(t, 4, got.Upvotes)
	assert.Equal(t, before.UpvoterIDs, got.UpvoterIDs, "the event doesn't say who voted")
	assert.Equal(t, before.Title, got.Title)
	assert.Equal(t, before.Status, got.Status)

	s.ApplyUpvoted("unknown", 10) // no-op
	assert.Len(t, s.Issues(), 1)
}

func TestPaginationUnchangedByEvents(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote, testIssue("i1", 0), testIssue("i2", 0))

	before := s.Pagination()
	require.Equal(t, 2, before.Total)

	s.ApplyDeleted("i1")
	s.ApplyCreated(testIssue("i3", 0))

	assert.Equal(t, before, s.Pagination(),
		"pagination reflects the last fetch, not merged events")
	assert.Len(t, s.Issues(), 2)
}

func TestCloseValidatesReason(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote, testIssue("i1", 0))

	_, err := s.Close(context.Background(), "i1", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestVerifyMergesServerRecord(t *testing.T) {
	remote := &fakeRemote{}
	verified := testIssue("i1", 0)
	verified.Status = model.StatusVerified
	remote.verifyFn = func(string) (*model.Issue, error) { return &verified, nil }

	s := newLoadedStore(t, "mod", remote, testIssue("i1", 0))

	_, err := s.Verify(context.Background(), "i1")
	require.NoError(t, err)

	got, _ := s.Get("i1")
	assert.Equal(t, model.StatusVerified, got.Status)
}

func TestIssuesReturnsIndependentCopies(t *testing.T) {
	remote := &fakeRemote{}
	s := newLoadedStore(t, "u1", remote, testIssue("i1", 1, "a"))

	snapshot := s.Issues()
	s.ApplyUpvoted("i1", 99)

	assert.Equal(t, 1, snapshot[0].Upvotes, "handed-out copies must not change under the caller")

	// Mutating the copy must not leak back either.
	snapshot[0].UpvoterIDs[0] = "tampered"
	got, _ := s.Get("i1")
	assert.Equal(t, []string{"a"}, got.UpvoterIDs)
}
