package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// issueLine is the one-line list format: id, severity, status, votes, title.
func issueLine(i model.Issue) string {
	return fmt.Sprintf("%-22s %-8s %-8s %4d votes  %s",
		i.ID, i.Severity, i.Status, i.Upvotes, i.Title)
}

func printIssueDetail(w io.Writer, i *model.Issue) {
	fmt.Fprintf(w, "%s  [%s, %s]\n", i.Title, i.Severity, i.Status)
	fmt.Fprintf(w, "id:        %s\n", i.ID)
	fmt.Fprintf(w, "reported:  %s by %s\n", i.CreatedAt.Local().Format(time.RFC1123), i.ReportedBy.Name)
	fmt.Fprintf(w, "location:  %.5f, %.5f\n", i.Location.Lat, i.Location.Lng)
	fmt.Fprintf(w, "activity:  %d votes, %d comments, %d views\n", i.Upvotes, i.CommentCount, i.Views)
	if len(i.Tags) > 0 {
		fmt.Fprintf(w, "tags:      %s\n", strings.Join(i.Tags, ", "))
	}
	if len(i.PhotoURLs) > 0 {
		fmt.Fprintf(w, "photos:    %s\n", strings.Join(i.PhotoURLs, ", "))
	}
	if i.CloseReason != "" {
		fmt.Fprintf(w, "closed:    %s\n", i.CloseReason)
	}
	fmt.Fprintf(w, "\n%s\n", i.Description)
}

func printComment(w io.Writer, c model.Comment) {
	fmt.Fprintf(w, "  %s  %s (%s):\n      %s\n",
		c.ID, c.Author.Name, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Text)
}
