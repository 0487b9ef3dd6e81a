package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// fakeComments scripts the thread's network calls.
type fakeComments struct {
	t *testing.T

	mu       sync.Mutex
	listFn   func(issueID string) ([]model.Comment, error)
	createFn func(issueID, text string) (*model.Comment, error)
	deleteFn func(issueID, commentID string) error
}

func (f *fakeComments) ListComments(_ context.Context, issueID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listFn == nil {
		f.t.Fatal("unexpected ListComments call")
	}
	return f.listFn(issueID)
}

func (f *fakeComments) CreateComment(_ context.Context, issueID, text string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn == nil {
		f.t.Fatal("unexpected CreateComment call")
	}
	return f.createFn(issueID, text)
}

func (f *fakeComments) DeleteComment(_ context.Context, issueID, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteFn == nil {
		f.t.Fatal("unexpected DeleteComment call")
	}
	return f.deleteFn(issueID, commentID)
}

func testComment(id, issueID, text string) model.Comment {
	return model.Comment{ID: id, IssueID: issueID, Text: text}
}

func newLoadedThread(t *testing.T, remote *fakeComments, issueID string, comments ...model.Comment) *CommentThread {
	t.Helper()
	remote.t = t
	remote.listFn = func(string) ([]model.Comment, error) {
		return comments, nil
	}
	th := NewCommentThread(remote, issueID, nil)
	require.NoError(t, th.Load(context.Background()))
	return th
}

func TestThreadLoadReplacesState(t *testing.T) {
	remote := &fakeComments{}
	th := newLoadedThread(t, remote, "i1",
		testComment("c1", "i1", "first"),
		testComment("c2", "i1", "second"),
	)

	got := th.Comments()
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c2", got[1].ID)
}

func TestThreadAddDedupesEventEcho(t *testing.T) {
	remote := &fakeComments{}
	th := newLoadedThread(t, remote, "i1")

	posted := testComment("c1", "i1", "same problem on my street")
	remote.createFn = func(issueID, text string) (*model.Comment, error) {
		assert.Equal(t, "i1", issueID)
		return &posted, nil
	}

	_, err := th.Add(context.Background(), "same problem on my street")
	require.NoError(t, err)

	th.ApplyAdded(posted) // echo of our own post
	assert.Len(t, th.Comments(), 1)
}

func TestThreadAddSurfacesRemoteError(t *testing.T) {
	remote := &fakeComments{}
	th := newLoadedThread(t, remote, "i1")

	remote.createFn = func(string, string) (*model.Comment, error) {
		return nil, errors.New("boom")
	}

	_, err := th.Add(context.Background(), "hello there")
	require.Error(t, err)
	assert.Empty(t, th.Comments())
}

func TestThreadIgnoresOtherIssuesEvents(t *testing.T) {
	remote := &fakeComments{}
	th := newLoadedThread(t, remote, "i1", testComment("c1", "i1", "hi"))

	th.ApplyAdded(testComment("c9", "other-issue", "not ours"))
	th.ApplyRemoved("other-issue", "c1")

	got := th.Comments()
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestThreadRemoveIdempotentWithEcho(t *testing.T) {
	remote := &fakeComments{}
	th := newLoadedThread(t, remote, "i1",
		testComment("c1", "i1", "first"),
		testComment("c2", "i1", "second"),
	)

	remote.deleteFn = func(issueID, commentID string) error {
		assert.Equal(t, "i1", issueID)
		assert.Equal(t, "c1", commentID)
		return nil
	}

	require.NoError(t, th.Remove(context.Background(), "c1"))
	th.ApplyRemoved("i1", "c1") // echo
	th.ApplyRemoved("i1", "c1") // duplicate delivery

	got := th.Comments()
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)
}

func TestThreadAppendKeepsOrder(t *testing.T) {
	remote := &fakeComments{}
	th := newLoadedThread(t, remote, "i1", testComment("c1", "i1", "first"))

	th.ApplyAdded(testComment("c2", "i1", "second"))
	th.ApplyAdded(testComment("c3", "i1", "third"))

	got := th.Comments()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}
