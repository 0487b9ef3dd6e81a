// Package events maintains the websocket connection to the UrbanPatch
// service and fans incoming events out to subscribers.
//
// Delivery contract, worth stating precisely because callers build
// reconciliation logic on top of it:
//
//   - Events are delivered in the order the socket delivers them, on the
//     bridge's single read goroutine. A handler that blocks stalls every
//     later event, so handlers must be quick.
//   - There is no buffering and no replay. Events that arrive while no
//     subscriber is registered are dropped, as is everything sent while the
//     connection was down. After a reconnect the caller re-fetches state
//     and subscribes again; the bridge does not resynchronize.
//   - A malformed frame is logged at debug level and dropped. It never
//     tears down the connection.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

const (
	// writeWait bounds control-frame writes (pings, close).
	writeWait = 10 * time.Second

	// pongWait is how long we tolerate silence before declaring the
	// connection dead. pingPeriod must be shorter so a pong is always
	// solicited in time.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps an inbound frame. The largest legitimate payload
	// is a full issue with photos and tags, well under this.
	maxMessageSize = 64 * 1024
)

// Event names as they appear on the wire.
const (
	EventIssueCreated   = "issue:created"
	EventIssueUpdated   = "issue:updated"
	EventIssueDeleted   = "issue:deleted"
	EventIssueUpvoted   = "issue:upvoted"
	EventCommentAdded   = "comment:added"
	EventCommentDeleted = "comment:deleted"
)

// envelope is the wire shape of every frame: the event name plus a payload
// whose shape depends on the name. Data stays raw until the name is known.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// deletedPayload is the body of issue:deleted.
type deletedPayload struct {
	IssueID string `json:"issueId"`
}

// upvotedPayload is the body of issue:upvoted. Deliberately minimal: the
// server broadcasts only the new count, not the full issue, so a flood of
// votes stays cheap.
type upvotedPayload struct {
	IssueID string `json:"issueId"`
	Upvotes int    `json:"upvotes"`
}

// commentDeletedPayload is the body of comment:deleted.
type commentDeletedPayload struct {
	IssueID   string `json:"issueId"`
	CommentID string `json:"commentId"`
}

// IssueHandlers receives issue lifecycle events. Nil funcs are skipped.
type IssueHandlers struct {
	// OnCreated and OnUpdated carry the full issue record.
	OnCreated func(model.Issue)
	OnUpdated func(model.Issue)

	// OnDeleted carries only the id.
	OnDeleted func(issueID string)

	// OnUpvoted carries the id and the new authoritative count. No other
	// issue field should be touched in response.
	OnUpvoted func(issueID string, upvotes int)
}

// CommentHandlers receives comment events across all issues. Subscribers
// interested in a single thread filter by Comment.IssueID themselves.
type CommentHandlers struct {
	OnAdded   func(model.Comment)
	OnDeleted func(issueID, commentID string)
}

// Config holds the optional knobs for Dial.
type Config struct {
	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
}

// Bridge owns one websocket connection and a registry of subscriptions.
// Subscribing never replaces an earlier subscription: every Subscribe call
// adds an independent handler set and returns a handle to remove it, so
// two screens can watch the same stream without fighting over a slot.
type Bridge struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
	closed bool

	done chan struct{}
}

// Subscription is the handle returned by the Subscribe methods. Close
// detaches its handlers; the bridge and its other subscriptions are
// unaffected.
type Subscription struct {
	bridge *Bridge
	id     int

	issues   *IssueHandlers
	comments *CommentHandlers
}

// Close removes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bridge.mu.Lock()
	defer s.bridge.mu.Unlock()
	delete(s.bridge.subs, s.id)
}

// Dial connects to the events endpoint (a ws:// or wss:// URL) and starts
// the read pump. The context bounds the handshake only; the connection
// itself lives until Close or a read error.
func Dial(ctx context.Context, url string, cfg Config) (*Bridge, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("events: connecting to %s: %w", url, err)
	}

	b := &Bridge{
		conn:   conn,
		logger: logger,
		subs:   make(map[int]*Subscription),
		done:   make(chan struct{}),
	}

	go b.readPump()
	go b.pingLoop()

	return b, nil
}

// SubscribeIssues registers handlers for issue lifecycle events and returns
// the handle that removes them.
func (b *Bridge) SubscribeIssues(h IssueHandlers) *Subscription {
	return b.addSubscription(&Subscription{issues: &h})
}

// SubscribeComments registers handlers for comment events.
func (b *Bridge) SubscribeComments(h CommentHandlers) *Subscription {
	return b.addSubscription(&Subscription{comments: &h})
}

func (b *Bridge) addSubscription(s *Subscription) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s.bridge = b
	s.id = b.nextID
	b.subs[s.id] = s
	return s
}

// Close shuts the connection down. Subscriptions are dropped; events
// already read but not yet dispatched may still be delivered.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	// Best effort: tell the peer we're going before slamming the TCP door.
	deadline := time.Now().Add(writeWait)
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return b.conn.Close()
}

// Done is closed when the read pump exits, whether by Close or by a
// connection failure. Callers that want reconnect behavior watch this,
// re-fetch their state, and Dial again.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// readPump is the single reader. All handlers run on this goroutine, which
// is what gives subscribers in-order delivery.
func (b *Bridge) readPump() {
	defer close(b.done)
	defer b.conn.Close()

	b.conn.SetReadLimit(maxMessageSize)
	_ = b.conn.SetReadDeadline(time.Now().Add(pongWait))
	b.conn.SetPongHandler(func(string) error {
		return b.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("event stream closed unexpectedly", slog.Any("error", err))
			}
			return
		}
		b.dispatch(message)
	}
}

// pingLoop keeps the connection alive until the read pump exits.
func (b *Bridge) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := b.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-b.done:
			return
		}
	}
}

// dispatch decodes one frame and runs the matching handlers. Anything that
// fails to decode is dropped: a bad frame from the server must not take
// down the stream or corrupt local state.
func (b *Bridge) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		b.logger.Debug("dropping malformed event frame", slog.Any("error", err))
		return
	}

	switch env.Event {
	case EventIssueCreated, EventIssueUpdated:
		var issue model.Issue
		if err := json.Unmarshal(env.Data, &issue); err != nil {
			b.logger.Debug("dropping malformed event payload",
				slog.String("event", env.Event), slog.Any("error", err))
			return
		}
		for _, s := range b.snapshotSubs() {
			if s.issues == nil {
				continue
			}
			if env.Event == EventIssueCreated && s.issues.OnCreated != nil {
				s.issues.OnCreated(issue)
			}
			if env.Event == EventIssueUpdated && s.issues.OnUpdated != nil {
				s.issues.OnUpdated(issue)
			}
		}

	case EventIssueDeleted:
		var p deletedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.IssueID == "" {
			b.logger.Debug("dropping malformed event payload",
				slog.String("event", env.Event), slog.Any("error", err))
			return
		}
		for _, s := range b.snapshotSubs() {
			if s.issues != nil && s.issues.OnDeleted != nil {
				s.issues.OnDeleted(p.IssueID)
			}
		}

	case EventIssueUpvoted:
		var p upvotedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.IssueID == "" {
			b.logger.Debug("dropping malformed event payload",
				slog.String("event", env.Event), slog.Any("error", err))
			return
		}
		for _, s := range b.snapshotSubs() {
			if s.issues != nil && s.issues.OnUpvoted != nil {
				s.issues.OnUpvoted(p.IssueID, p.Upvotes)
			}
		}

	case EventCommentAdded:
		var comment model.Comment
		if err := json.Unmarshal(env.Data, &comment); err != nil {
			b.logger.Debug("dropping malformed event payload",
				slog.String("event", env.Event), slog.Any("error", err))
			return
		}
		for _, s := range b.snapshotSubs() {
			if s.comments != nil && s.comments.OnAdded != nil {
				s.comments.OnAdded(comment)
			}
		}

	case EventCommentDeleted:
		var p commentDeletedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.IssueID == "" {
			b.logger.Debug("dropping malformed event payload",
				slog.String("event", env.Event), slog.Any("error", err))
			return
		}
		for _, s := range b.snapshotSubs() {
			if s.comments != nil && s.comments.OnDeleted != nil {
				s.comments.OnDeleted(p.IssueID, p.CommentID)
			}
		}

	default:
		b.logger.Debug("ignoring unknown event", slog.String("event", env.Event))
	}
}

// snapshotSubs copies the registry so handlers run without the lock held.
// A handler may subscribe or unsubscribe; that takes effect from the next
// event on. Subscribers are notified in the order they subscribed.
func (b *Bridge) snapshotSubs() []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
