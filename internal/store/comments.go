package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/urbanpatch/urbanpatch-go/internal/api"
	"github.com/urbanpatch/urbanpatch-go/internal/events"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// RemoteComments is the slice of the API client a comment thread needs.
type RemoteComments interface {
	ListComments(ctx context.Context, issueID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, issueID, text string) (*model.Comment, error)
	DeleteComment(ctx context.Context, issueID, commentID string) error
}

var _ RemoteComments = (*api.Client)(nil)

// CommentThread holds the comments of one issue, oldest first. Comments
// are not updated optimistically — posting waits for the server's record,
// which carries the id and timestamp the thread needs anyway.
type CommentThread struct {
	api     RemoteComments
	issueID string
	logger  *slog.Logger

	mu       sync.Mutex
	comments []model.Comment
}

// NewCommentThread creates an empty thread for one issue. Call Load to
// populate it.
func NewCommentThread(remote RemoteComments, issueID string, logger *slog.Logger) *CommentThread {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentThread{
		api:      remote,
		issueID:  issueID,
		logger:   logger,
		comments: []model.Comment{},
	}
}

// Load fetches the thread from the server, replacing local state.
func (t *CommentThread) Load(ctx context.Context) error {
	comments, err := t.api.ListComments(ctx, t.issueID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.comments = comments
	return nil
}

// Add posts a comment and appends the server's record. The API client
// validates and sanitizes the text before any request goes out. The
// append is idempotent with the comment:added echo for our own post.
func (t *CommentThread) Add(ctx context.Context, text string) (*model.Comment, error) {
	comment, err := t.api.CreateComment(ctx, t.issueID, text)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendIfAbsent(*comment)
	return comment, nil
}

// Remove deletes a comment remotely, then locally.
func (t *CommentThread) Remove(ctx context.Context, commentID string) error {
	if err := t.api.DeleteComment(ctx, t.issueID, commentID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.drop(commentID)
	return nil
}

// Comments returns a copy of the thread in order.
func (t *CommentThread) Comments() []model.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Comment, len(t.comments))
	copy(out, t.comments)
	return out
}

// ApplyAdded merges a comment event. Events arrive for every issue, so
// comments belonging to other threads are ignored here, and duplicates
// (our own post's echo) are dropped.
func (t *CommentThread) ApplyAdded(comment model.Comment) {
	if comment.IssueID != t.issueID {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendIfAbsent(comment)
}

// ApplyRemoved merges a comment deletion event. Idempotent.
func (t *CommentThread) ApplyRemoved(issueID, commentID string) {
	if issueID != t.issueID {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.drop(commentID)
}

// Bind subscribes the thread to comment events. Close the returned
// subscription when the thread leaves the screen.
func (t *CommentThread) Bind(b *events.Bridge) *events.Subscription {
	return b.SubscribeComments(events.CommentHandlers{
		OnAdded:   t.ApplyAdded,
		OnDeleted: t.ApplyRemoved,
	})
}

func (t *CommentThread) appendIfAbsent(comment model.Comment) {
	for i := range t.comments {
		if t.comments[i].ID == comment.ID {
			return
		}
	}
	t.comments = append(t.comments, comment)
}

func (t *CommentThread) drop(commentID string) {
	for i := range t.comments {
		if t.comments[i].ID == commentID {
			t.comments = append(t.comments[:i], t.comments[i+1:]...)
			return
		}
	}
}
