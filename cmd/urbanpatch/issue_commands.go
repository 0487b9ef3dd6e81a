package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urbanpatch/urbanpatch-go/internal/api"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
	"github.com/urbanpatch/urbanpatch-go/internal/store"
)

func (a *app) cmdReport(ctx context.Context, args []string) error {
	fs := commandFlags("report")
	title := fs.String("title", "", "short summary (5-100 characters)")
	description := fs.String("description", "", "what is wrong and where (10-1000 characters)")
	severity := fs.String("severity", "medium", "low, medium, high, or critical")
	tags := fs.StringSlice("tag", nil, "tag (repeatable)")
	photos := fs.StringSlice("photo", nil, "image file to attach (repeatable)")
	lat := fs.Float64("lat", 0, "latitude of the issue")
	lng := fs.Float64("lng", 0, "longitude of the issue")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Photos go up first so their URLs can ride along in the draft.
	var photoURLs []string
	for _, path := range *photos {
		url, err := a.uploadPhoto(ctx, path)
		if err != nil {
			return err
		}
		photoURLs = append(photoURLs, url)
	}

	draft := model.IssueDraft{
		Title:       *title,
		Description: *description,
		Severity:    model.Severity(*severity),
		Tags:        *tags,
		PhotoURLs:   photoURLs,
		Location:    model.Location{Lat: *lat, Lng: *lng},
	}

	issue, err := a.issueStore().Create(ctx, draft)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Reported issue %s.\n", issue.ID)
	printIssueDetail(a.out, issue)
	return nil
}

func (a *app) uploadPhoto(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening photo %s: %w", path, err)
	}
	defer f.Close()
	return a.client.UploadPhoto(ctx, filepath.Base(path), f)
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := commandFlags("list")
	severity := fs.String("severity", "", "filter by severity")
	status := fs.String("status", "", "filter by status")
	tag := fs.String("tag", "", "filter by tag")
	search := fs.String("search", "", "filter by free text")
	sort := fs.String("sort", "", "recent (default), oldest, popular, or severity")
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "issues per page (max 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := a.issueStore()
	err := s.Fetch(ctx, api.ListOptions{
		Severity: model.Severity(*severity),
		Status:   model.Status(*status),
		Tag:      *tag,
		Search:   *search,
		Sort:     *sort,
		Page:     *page,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}

	issues := s.Issues()
	if len(issues) == 0 {
		fmt.Fprintln(a.out, "No issues found.")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintln(a.out, issueLine(issue))
	}

	p := s.Pagination()
	if p.Pages > 1 {
		fmt.Fprintf(a.out, "\npage %d of %d (%d issues total)\n", p.Page, p.Pages, p.Total)
	}
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	id, err := singleArg("show", "issue id", args)
	if err != nil {
		return err
	}

	issue, err := a.client.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	printIssueDetail(a.out, issue)

	thread := store.NewCommentThread(a.client, id, a.logger)
	if err := thread.Load(ctx); err != nil {
		return err
	}
	comments := thread.Comments()
	if len(comments) == 0 {
		return nil
	}

	fmt.Fprintf(a.out, "\n%d comment(s):\n", len(comments))
	for _, c := range comments {
		printComment(a.out, c)
	}
	return nil
}

// cmdEdit fetches the current record and overlays only the flags that were
// actually set, so `edit <id> --severity high` leaves everything else alone.
func (a *app) cmdEdit(ctx context.Context, args []string) error {
	fs := commandFlags("edit")
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	severity := fs.String("severity", "", "new severity")
	tags := fs.StringSlice("tag", nil, "replacement tags (repeatable)")
	lat := fs.Float64("lat", 0, "new latitude")
	lng := fs.Float64("lng", 0, "new longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := singleArg("edit", "issue id", fs.Args())
	if err != nil {
		return err
	}

	current, err := a.client.GetIssue(ctx, id)
	if err != nil {
		return err
	}

	draft := model.IssueDraft{
		Title:       current.Title,
		Description: current.Description,
		Severity:    current.Severity,
		Tags:        current.Tags,
		PhotoURLs:   current.PhotoURLs,
		Location:    current.Location,
	}
	if fs.Changed("title") {
		draft.Title = *title
	}
	if fs.Changed("description") {
		draft.Description = *description
	}
	if fs.Changed("severity") {
		draft.Severity = model.Severity(*severity)
	}
	if fs.Changed("tag") {
		draft.Tags = *tags
	}
	if fs.Changed("lat") {
		draft.Location.Lat = *lat
	}
	if fs.Changed("lng") {
		draft.Location.Lng = *lng
	}

	issue, err := a.issueStore().Update(ctx, id, draft)
	if err != nil {
		return err
	}
	printIssueDetail(a.out, issue)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	id, err := singleArg("delete", "issue id", args)
	if err != nil {
		return err
	}
	if err := a.issueStore().Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted issue %s.\n", id)
	return nil
}

// cmdUpvote seeds a store with the one issue so the optimistic toggle and
// its commit/rollback run the same path an interactive client would.
func (a *app) cmdUpvote(ctx context.Context, args []string) error {
	id, err := singleArg("upvote", "issue id", args)
	if err != nil {
		return err
	}

	current, err := a.client.GetIssue(ctx, id)
	if err != nil {
		return err
	}

	s := a.issueStore()
	s.ApplyCreated(*current)

	issue, err := s.Upvote(ctx, id)
	if err != nil {
		return err
	}

	user, _ := a.session.User()
	if user != nil && issue.UpvotedBy(user.ID) {
		fmt.Fprintf(a.out, "Upvoted %s (%d votes).\n", issue.ID, issue.Upvotes)
	} else {
		fmt.Fprintf(a.out, "Removed your vote from %s (%d votes).\n", issue.ID, issue.Upvotes)
	}
	return nil
}

func (a *app) cmdVerify(ctx context.Context, args []string) error {
	id, err := singleArg("verify", "issue id", args)
	if err != nil {
		return err
	}
	issue, err := a.issueStore().Verify(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Issue %s is now %s.\n", issue.ID, issue.Status)
	return nil
}

func (a *app) cmdClose(ctx context.Context, args []string) error {
	fs := commandFlags("close")
	reason := fs.String("reason", "", "why the issue is being closed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := singleArg("close", "issue id", fs.Args())
	if err != nil {
		return err
	}

	issue, err := a.issueStore().Close(ctx, id, *reason)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Issue %s closed: %s\n", issue.ID, issue.CloseReason)
	return nil
}

func (a *app) cmdComment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: comment <issue-id> <text>")
	}
	id, text := args[0], strings.Join(args[1:], " ")

	thread := store.NewCommentThread(a.client, id, a.logger)
	comment, err := thread.Add(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Comment %s posted.\n", comment.ID)
	return nil
}

func (a *app) cmdUncomment(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: uncomment <issue-id> <comment-id>")
	}

	thread := store.NewCommentThread(a.client, args[0], a.logger)
	if err := thread.Remove(ctx, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Comment %s deleted.\n", args[1])
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: search <query>")
	}

	issues, err := a.client.SearchIssues(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Fprintln(a.out, "No issues match.")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintln(a.out, issueLine(issue))
	}
	return nil
}

func (a *app) cmdNearby(ctx context.Context, args []string) error {
	fs := commandFlags("nearby")
	lat := fs.Float64("lat", 0, "latitude of the search center")
	lng := fs.Float64("lng", 0, "longitude of the search center")
	radius := fs.Float64("radius", 5, "search radius in kilometers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !fs.Changed("lat") || !fs.Changed("lng") {
		return fmt.Errorf("nearby needs --lat and --lng")
	}

	issues, err := a.client.NearbyIssues(ctx, *lat, *lng, *radius)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Fprintf(a.out, "No issues within %.1f km.\n", *radius)
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintln(a.out, issueLine(issue))
	}
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs := commandFlags("export")
	format := fs.String("format", "csv", `"csv" or "geojson"`)
	output := fs.String("output", "", "write to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w := a.out
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", *output, err)
		}
		defer f.Close()
		w = f
	}

	if err := a.client.ExportIssues(ctx, *format, w); err != nil {
		return err
	}
	if *output != "" {
		fmt.Fprintf(a.out, "Exported to %s.\n", *output)
	}
	return nil
}

func (a *app) cmdStats(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("stats takes no arguments")
	}

	stats, err := a.client.GetStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "issues:    %d total (%d open, %d verified, %d closed)\n",
		stats.TotalIssues, stats.OpenIssues, stats.VerifiedIssues, stats.ClosedIssues)
	fmt.Fprintf(a.out, "activity:  %d upvotes, %d comments\n",
		stats.TotalUpvotes, stats.TotalComments)

	user, ok := a.session.User()
	if !ok {
		return nil
	}
	mine, err := a.client.GetUserStats(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "you:       %d reported, %d upvoted, %d comments\n",
		mine.IssuesReported, mine.UpvotesGiven, mine.CommentsPosted)
	return nil
}

// singleArg extracts the one positional argument a command expects.
func singleArg(command, what string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s <%s>", command, strings.ReplaceAll(what, " ", "-"))
	}
	return args[0], nil
}
