// Command urbanpatch is the terminal client for the UrbanPatch community
// issue tracker. It signs in, reports and browses issues, votes, comments,
// moderates, and can sit on the live event stream with `watch`.
//
// Global flags come before the command, command flags after it:
//
//	urbanpatch --verbose list --status open --sort popular
//
// The session (token + cached profile) persists between invocations in a
// small SQLite file, so signing in once is enough.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/urbanpatch/urbanpatch-go/internal/api"
	"github.com/urbanpatch/urbanpatch-go/internal/config"
	"github.com/urbanpatch/urbanpatch-go/internal/session"
	"github.com/urbanpatch/urbanpatch-go/internal/store"
)

func main() {
	flags := pflag.NewFlagSet("urbanpatch", pflag.ExitOnError)
	configPath := flags.String("config", "", "config file (default <user config dir>/urbanpatch/config.yaml)")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	flags.Usage = usage

	// Stop at the first non-flag argument so command flags stay with the
	// command: `urbanpatch list --limit 5` must not eat --limit here.
	flags.SetInterspersed(false)
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	// Ctrl+C cancels the in-flight request (or stops `watch`) instead of
	// killing the process mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(*configPath, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "urbanpatch:", err)
		os.Exit(1)
	}
	defer a.session.Close()

	if err := a.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "urbanpatch:", err)
		os.Exit(1)
	}
}

// app bundles the long-lived pieces every command needs.
type app struct {
	cfg     *config.Config
	session *session.Store
	client  *api.Client
	logger  *slog.Logger
	out     io.Writer
	in      *bufio.Reader
}

func newApp(configPath string, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SessionPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	sess, err := session.Open(cfg.SessionPath)
	if err != nil {
		return nil, err
	}

	client, err := api.New(api.Config{
		BaseURL:    cfg.APIBaseURL,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.Timeout)},
		Tokens:     sess,
		OnUnauthorized: func() {
			// The server rejected the stored token. Drop it so the next
			// command prompts for a fresh login instead of repeating the 401.
			if err := sess.Clear(); err != nil {
				logger.Warn("failed to clear rejected session", slog.String("error", err.Error()))
			}
		},
		Logger: logger,
	})
	if err != nil {
		sess.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		session: sess,
		client:  client,
		logger:  logger,
		out:     os.Stdout,
		in:      bufio.NewReader(os.Stdin),
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.cmdRegister(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(args)
	case "whoami":
		return a.cmdWhoami(ctx, args)
	case "profile":
		return a.cmdProfile(ctx, args)
	case "passwd":
		return a.cmdPasswd(ctx, args)
	case "report":
		return a.cmdReport(ctx, args)
	case "list":
		return a.cmdList(ctx, args)
	case "show":
		return a.cmdShow(ctx, args)
	case "edit":
		return a.cmdEdit(ctx, args)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "upvote":
		return a.cmdUpvote(ctx, args)
	case "verify":
		return a.cmdVerify(ctx, args)
	case "close":
		return a.cmdClose(ctx, args)
	case "comment":
		return a.cmdComment(ctx, args)
	case "uncomment":
		return a.cmdUncomment(ctx, args)
	case "search":
		return a.cmdSearch(ctx, args)
	case "nearby":
		return a.cmdNearby(ctx, args)
	case "export":
		return a.cmdExport(ctx, args)
	case "stats":
		return a.cmdStats(ctx, args)
	case "watch":
		return a.cmdWatch(ctx, args)
	case "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// issueStore builds a store bound to the signed-in user (or an anonymous
// one — reads work either way, mutations come back 401).
func (a *app) issueStore() *store.IssueStore {
	var userID string
	if u, ok := a.session.User(); ok {
		userID = u.ID
	}
	return store.New(store.Config{
		API:    a.client,
		UserID: userID,
		Logger: a.logger,
	})
}

// commandFlags creates a flag set that reports parse errors instead of
// exiting, so run() can surface them like any other error.
func commandFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// promptLine prints a label and reads one line from stdin. Input echoes;
// this CLI talks to a community issue tracker, not a bank.
func (a *app) promptLine(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: urbanpatch [--config FILE] [--verbose] <command> [flags] [args]

account
  register                      create an account and sign in
  login                         sign in
  logout                        drop the stored session
  whoami                        show the signed-in account
  profile --name/--email        edit the profile
  passwd                        change the password

issues
  report --title ... --description ...   report a new issue
  list [--severity|--status|--tag|--search|--sort|--page|--limit]
  show <id>                     one issue with its comments
  edit <id> [flags]             edit an issue you reported
  delete <id>                   delete an issue
  upvote <id>                   toggle your upvote
  verify <id>                   mark verified (moderator)
  close <id> --reason ...       close with a reason (moderator)
  comment <id> <text>           post a comment
  uncomment <id> <comment-id>   delete a comment
  search <query>                free-text search
  nearby --lat ... --lng ...    issues near a point
  export --format csv|geojson   bulk export
  stats                         service and personal activity summary
  watch                         stream live events until interrupted
`)
}
