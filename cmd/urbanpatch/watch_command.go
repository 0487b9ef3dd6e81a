package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanpatch/urbanpatch-go/internal/events"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// cmdWatch streams live events to the terminal until interrupted. There is
// no replay on the stream, so anything that happened before the connection
// came up is invisible here; `list` is the catch-up mechanism.
func (a *app) cmdWatch(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("watch takes no arguments")
	}

	bridge, err := events.Dial(ctx, a.cfg.EventsURL, events.Config{Logger: a.logger})
	if err != nil {
		return err
	}
	defer bridge.Close()

	fmt.Fprintf(a.out, "Watching %s (Ctrl+C to stop)...\n", a.cfg.EventsURL)

	stamp := func() string {
		return time.Now().Format("15:04:05")
	}

	issueSub := bridge.SubscribeIssues(events.IssueHandlers{
		OnCreated: func(i model.Issue) {
			fmt.Fprintf(a.out, "%s  new issue    %s  [%s] %s\n", stamp(), i.ID, i.Severity, i.Title)
		},
		OnUpdated: func(i model.Issue) {
			fmt.Fprintf(a.out, "%s  updated      %s  [%s] %s\n", stamp(), i.ID, i.Status, i.Title)
		},
		OnDeleted: func(issueID string) {
			fmt.Fprintf(a.out, "%s  deleted      %s\n", stamp(), issueID)
		},
		OnUpvoted: func(issueID string, upvotes int) {
			fmt.Fprintf(a.out, "%s  upvoted      %s  now %d votes\n", stamp(), issueID, upvotes)
		},
	})
	defer issueSub.Close()

	commentSub := bridge.SubscribeComments(events.CommentHandlers{
		OnAdded: func(c model.Comment) {
			fmt.Fprintf(a.out, "%s  comment      %s on %s: %s\n", stamp(), c.Author.Name, c.IssueID, c.Text)
		},
		OnDeleted: func(issueID, commentID string) {
			fmt.Fprintf(a.out, "%s  uncommented  %s on %s\n", stamp(), commentID, issueID)
		},
	})
	defer commentSub.Close()

	select {
	case <-ctx.Done():
		fmt.Fprintln(a.out, "Stopped.")
		return nil
	case <-bridge.Done():
		return fmt.Errorf("connection to %s lost", a.cfg.EventsURL)
	}
}
