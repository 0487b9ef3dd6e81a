package mockd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	_ "modernc.org/sqlite"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
)

// DB is the embedded storage layer. modernc.org/sqlite keeps it pure Go —
// no C toolchain needed to build or cross-compile the dev server.
//
// Tags and photo URLs are stored as JSON arrays in TEXT columns; upvotes
// live in their own table so the toggle is a plain insert-or-delete and
// the count is never denormalized.
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the database at path and runs migrations.
// Use ":memory:" for a throwaway instance in tests.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("mockd: opening database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must be
	// pinned to one connection or queries land in empty databases.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mockd: pinging database: %w", err)
	}

	// WAL allows reads while a write is in flight, which matters once the
	// websocket broadcaster and HTTP handlers share the pool.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mockd: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mockd: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mockd: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS issues (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL,
			severity     TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'open',
			tags         TEXT NOT NULL DEFAULT '[]',
			photos       TEXT NOT NULL DEFAULT '[]',
			lat          REAL NOT NULL DEFAULT 0,
			lng          REAL NOT NULL DEFAULT 0,
			views        INTEGER NOT NULL DEFAULT 0,
			close_reason TEXT NOT NULL DEFAULT '',
			reporter_id  TEXT NOT NULL REFERENCES users(id),
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues(created_at);
		CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);

		CREATE TABLE IF NOT EXISTS issue_upvotes (
			issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
			user_id  TEXT NOT NULL REFERENCES users(id),
			PRIMARY KEY (issue_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			issue_id   TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
			author_id  TEXT NOT NULL REFERENCES users(id),
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_issue_id ON comments(issue_id);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// --- users ---

// CreateUser inserts a new account. A duplicate email comes back as a
// conflict, which the handler surfaces as 409.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (*model.User, error) {
	user := &model.User{
		ID:        xid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, passwordHash, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
			}
		}
		return nil, fmt.Errorf("mockd: creating user: %w", err)
	}

	return user, nil
}

// UserCount returns the number of registered accounts.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("mockd: counting users: %w", err)
	}
	return count, nil
}

// UserByEmail returns the account and its password hash for login checks.
func (db *DB) UserByEmail(ctx context.Context, email string) (*model.User, string, error) {
	var (
		user model.User
		hash string
		role string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at
		 FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &hash, &role, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", apperror.NotFound("user", email)
		}
		return nil, "", fmt.Errorf("mockd: getting user by email: %w", err)
	}
	user.Role = model.Role(role)
	return &user, hash, nil
}

// UserByID returns one account.
func (db *DB) UserByID(ctx context.Context, id string) (*model.User, error) {
	var (
		user model.User
		role string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Name, &user.Email, &role, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("mockd: getting user %s: %w", id, err)
	}
	user.Role = model.Role(role)
	return &user, nil
}

// UpdateProfile changes name and email, returning the updated account.
func (db *DB) UpdateProfile(ctx context.Context, id, name, email string) (*model.User, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ? WHERE id = ?`, name, email, id,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
			}
		}
		return nil, fmt.Errorf("mockd: updating profile %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("user", id)
	}
	return db.UserByID(ctx, id)
}

// PasswordHash returns the stored hash for a password change check.
func (db *DB) PasswordHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := db.conn.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE id = ?`, id,
	).Scan(&hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("user", id)
		}
		return "", fmt.Errorf("mockd: getting password hash: %w", err)
	}
	return hash, nil
}

// SetPasswordHash replaces the stored hash.
func (db *DB) SetPasswordHash(ctx context.Context, id, hash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, hash, id,
	)
	if err != nil {
		return fmt.Errorf("mockd: setting password hash: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// --- issues ---

// issueColumns is the SELECT list every issue query shares. Upvotes,
// upvoter IDs, and comment count are derived on read so they can never
// drift from the truth tables.
const issueColumns = `
	i.id, i.title, i.description, i.severity, i.status, i.tags, i.photos,
	i.lat, i.lng, i.views, i.close_reason, i.created_at,
	i.reporter_id, u.name,
	(SELECT COUNT(*) FROM issue_upvotes v WHERE v.issue_id = i.id) AS upvotes,
	(SELECT COALESCE(json_group_array(v.user_id), '[]')
	 FROM issue_upvotes v WHERE v.issue_id = i.id) AS upvoter_ids,
	(SELECT COUNT(*) FROM comments c WHERE c.issue_id = i.id) AS comment_count`

const issueFrom = ` FROM issues i JOIN users u ON u.id = i.reporter_id`

func scanIssue(row interface{ Scan(...any) error }) (*model.Issue, error) {
	var (
		issue      model.Issue
		severity   string
		status     string
		tagsJSON   string
		photosJSON string
		votersJSON string
	)
	err := row.Scan(
		&issue.ID, &issue.Title, &issue.Description, &severity, &status,
		&tagsJSON, &photosJSON,
		&issue.Location.Lat, &issue.Location.Lng,
		&issue.Views, &issue.CloseReason, &issue.CreatedAt,
		&issue.ReportedBy.ID, &issue.ReportedBy.Name,
		&issue.Upvotes, &votersJSON, &issue.CommentCount,
	)
	if err != nil {
		return nil, err
	}

	issue.Severity = model.Severity(severity)
	issue.Status = model.Status(status)
	if err := json.Unmarshal([]byte(tagsJSON), &issue.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if err := json.Unmarshal([]byte(photosJSON), &issue.PhotoURLs); err != nil {
		return nil, fmt.Errorf("decoding photos: %w", err)
	}
	if err := json.Unmarshal([]byte(votersJSON), &issue.UpvoterIDs); err != nil {
		return nil, fmt.Errorf("decoding upvoter ids: %w", err)
	}
	return &issue, nil
}

// InsertIssue stores a new issue from a validated draft.
func (db *DB) InsertIssue(ctx context.Context, draft model.IssueDraft, reporterID string) (*model.Issue, error) {
	id := xid.New().String()
	now := time.Now().UTC()

	tags, err := json.Marshal(emptyIfNil(draft.Tags))
	if err != nil {
		return nil, fmt.Errorf("mockd: encoding tags: %w", err)
	}
	photos, err := json.Marshal(emptyIfNil(draft.PhotoURLs))
	if err != nil {
		return nil, fmt.Errorf("mockd: encoding photos: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO issues (id, title, description, severity, status, tags, photos,
		                     lat, lng, reporter_id, created_at)
		 VALUES (?, ?, ?, ?, 'open', ?, ?, ?, ?, ?, ?)`,
		id, draft.Title, draft.Description, string(draft.Severity),
		string(tags), string(photos),
		draft.Location.Lat, draft.Location.Lng,
		reporterID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("mockd: creating issue: %w", err)
	}

	return db.IssueByID(ctx, id)
}

// IssueByID returns one issue with its derived counters.
func (db *DB) IssueByID(ctx context.Context, id string) (*model.Issue, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT`+issueColumns+issueFrom+` WHERE i.id = ?`, id)

	issue, err := scanIssue(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("issue", id)
		}
		return nil, fmt.Errorf("mockd: getting issue %s: %w", id, err)
	}
	return issue, nil
}

// IncrementViews bumps the view counter. Called on every GET of a single
// issue, matching the hosted service's behavior.
func (db *DB) IncrementViews(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE issues SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mockd: incrementing views: %w", err)
	}
	return nil
}

// IssueQuery is the filter/sort/pagination input of QueryIssues.
type IssueQuery struct {
	Severity string
	Status   string
	Tag      string
	Search   string
	Sort     string // recent (default), oldest, popular, severity
	Page     int
	Limit    int
}

// QueryIssues returns one page of issues plus the total match count.
func (db *DB) QueryIssues(ctx context.Context, q IssueQuery) ([]model.Issue, int, error) {
	var (
		where []string
		args  []any
	)
	if q.Severity != "" {
		where = append(where, "i.severity = ?")
		args = append(args, q.Severity)
	}
	if q.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, q.Status)
	}
	if q.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(i.tags) WHERE json_each.value = ?)")
		args = append(args, q.Tag)
	}
	if q.Search != "" {
		where = append(where, "(i.title LIKE ? OR i.description LIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issues i`+clause, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("mockd: counting issues: %w", err)
	}

	var order string
	switch q.Sort {
	case "oldest":
		order = "i.created_at ASC"
	case "popular":
		order = "upvotes DESC, i.created_at DESC"
	case "severity":
		order = `CASE i.severity
			WHEN 'critical' THEN 4 WHEN 'high' THEN 3
			WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0
		END DESC, i.created_at DESC`
	default: // "recent"
		order = "i.created_at DESC"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	rows, err := db.conn.QueryContext(ctx,
		`SELECT`+issueColumns+issueFrom+clause+
			` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("mockd: listing issues: %w", err)
	}
	defer rows.Close()

	issues := make([]model.Issue, 0, limit)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("mockd: scanning issue row: %w", err)
		}
		issues = append(issues, *issue)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("mockd: iterating issues: %w", err)
	}

	return issues, total, nil
}

// AllIssues returns every issue, newest first. Nearby and export work on
// the full set.
func (db *DB) AllIssues(ctx context.Context) ([]model.Issue, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT`+issueColumns+issueFrom+` ORDER BY i.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("mockd: listing all issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("mockd: scanning issue row: %w", err)
		}
		issues = append(issues, *issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mockd: iterating issues: %w", err)
	}
	return issues, nil
}

// UpdateIssueDraft overwrites the draft-editable fields.
func (db *DB) UpdateIssueDraft(ctx context.Context, id string, draft model.IssueDraft) (*model.Issue, error) {
	tags, err := json.Marshal(emptyIfNil(draft.Tags))
	if err != nil {
		return nil, fmt.Errorf("mockd: encoding tags: %w", err)
	}
	photos, err := json.Marshal(emptyIfNil(draft.PhotoURLs))
	if err != nil {
		return nil, fmt.Errorf("mockd: encoding photos: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE issues SET title = ?, description = ?, severity = ?,
		                   tags = ?, photos = ?, lat = ?, lng = ?
		 WHERE id = ?`,
		draft.Title, draft.Description, string(draft.Severity),
		string(tags), string(photos),
		draft.Location.Lat, draft.Location.Lng, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mockd: updating issue %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("issue", id)
	}

	return db.IssueByID(ctx, id)
}

// DeleteIssue removes an issue; upvotes and comments cascade.
func (db *DB) DeleteIssue(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mockd: deleting issue %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("issue", id)
	}
	return nil
}

// ToggleUpvote adds the user's vote if absent, removes it if present, and
// returns the refreshed issue.
func (db *DB) ToggleUpvote(ctx context.Context, issueID, userID string) (*model.Issue, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM issue_upvotes WHERE issue_id = ? AND user_id = ?`,
		issueID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("mockd: removing upvote: %w", err)
	}

	removed, _ := result.RowsAffected()
	if removed == 0 {
		// Nothing to remove, so this toggle adds. The issue must exist —
		// the FK catches a vote on a deleted issue.
		if _, err := db.IssueByID(ctx, issueID); err != nil {
			return nil, err
		}
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO issue_upvotes (issue_id, user_id) VALUES (?, ?)`,
			issueID, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("mockd: adding upvote: %w", err)
		}
	}

	return db.IssueByID(ctx, issueID)
}

// SetIssueStatus moves an issue to a new status, enforcing the forward-only
// transition rules. reason is stored only when closing.
func (db *DB) SetIssueStatus(ctx context.Context, id string, to model.Status, reason string) (*model.Issue, error) {
	issue, err := db.IssueByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !issue.Status.CanTransition(to) {
		return nil, &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: fmt.Sprintf("cannot move issue from %s to %s", issue.Status, to),
		}
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE issues SET status = ?, close_reason = ? WHERE id = ?`,
		string(to), reason, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mockd: setting issue status: %w", err)
	}

	return db.IssueByID(ctx, id)
}

// --- comments ---

// InsertComment stores a comment and returns it with the author attached.
func (db *DB) InsertComment(ctx context.Context, issueID, authorID, text string) (*model.Comment, error) {
	if _, err := db.IssueByID(ctx, issueID); err != nil {
		return nil, err
	}

	id := xid.New().String()
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, issue_id, author_id, text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, issueID, authorID, text, now,
	)
	if err != nil {
		return nil, fmt.Errorf("mockd: creating comment: %w", err)
	}

	return db.CommentByID(ctx, issueID, id)
}

// CommentByID returns one comment, scoped to its issue so a comment ID
// can't be addressed through the wrong issue's URL.
func (db *DB) CommentByID(ctx context.Context, issueID, commentID string) (*model.Comment, error) {
	var comment model.Comment
	err := db.conn.QueryRowContext(ctx,
		`SELECT c.id, c.issue_id, c.text, c.created_at, c.author_id, u.name
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.id = ? AND c.issue_id = ?`,
		commentID, issueID,
	).Scan(&comment.ID, &comment.IssueID, &comment.Text, &comment.CreatedAt,
		&comment.Author.ID, &comment.Author.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", commentID)
		}
		return nil, fmt.Errorf("mockd: getting comment %s: %w", commentID, err)
	}
	return &comment, nil
}

// CommentsForIssue returns an issue's comments, oldest first.
func (db *DB) CommentsForIssue(ctx context.Context, issueID string) ([]model.Comment, error) {
	if _, err := db.IssueByID(ctx, issueID); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.issue_id, c.text, c.created_at, c.author_id, u.name
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.issue_id = ?
		 ORDER BY c.created_at ASC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("mockd: listing comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, 8)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Text, &c.CreatedAt,
			&c.Author.ID, &c.Author.Name); err != nil {
			return nil, fmt.Errorf("mockd: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mockd: iterating comments: %w", err)
	}
	return comments, nil
}

// UpdateCommentText replaces a comment's text.
func (db *DB) UpdateCommentText(ctx context.Context, issueID, commentID, text string) (*model.Comment, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET text = ? WHERE id = ? AND issue_id = ?`,
		text, commentID, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("mockd: updating comment %s: %w", commentID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("comment", commentID)
	}
	return db.CommentByID(ctx, issueID, commentID)
}

// DeleteComment removes a comment.
func (db *DB) DeleteComment(ctx context.Context, issueID, commentID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND issue_id = ?`, commentID, issueID)
	if err != nil {
		return fmt.Errorf("mockd: deleting comment %s: %w", commentID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("comment", commentID)
	}
	return nil
}

// --- stats ---

// ServiceStats mirrors the GET /stats response.
type ServiceStats struct {
	TotalIssues    int `json:"totalIssues"`
	OpenIssues     int `json:"openIssues"`
	VerifiedIssues int `json:"verifiedIssues"`
	ClosedIssues   int `json:"closedIssues"`
	TotalUpvotes   int `json:"totalUpvotes"`
	TotalComments  int `json:"totalComments"`
}

// UserActivity mirrors the GET /stats/user/{id} response.
type UserActivity struct {
	IssuesReported int `json:"issuesReported"`
	UpvotesGiven   int `json:"upvotesGiven"`
	CommentsPosted int `json:"commentsPosted"`
}

// Stats aggregates service-wide counters.
func (db *DB) Stats(ctx context.Context) (*ServiceStats, error) {
	var s ServiceStats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM issues),
			(SELECT COUNT(*) FROM issues WHERE status = 'open'),
			(SELECT COUNT(*) FROM issues WHERE status = 'verified'),
			(SELECT COUNT(*) FROM issues WHERE status = 'closed'),
			(SELECT COUNT(*) FROM issue_upvotes),
			(SELECT COUNT(*) FROM comments)
	`).Scan(&s.TotalIssues, &s.OpenIssues, &s.VerifiedIssues,
		&s.ClosedIssues, &s.TotalUpvotes, &s.TotalComments)
	if err != nil {
		return nil, fmt.Errorf("mockd: aggregating stats: %w", err)
	}
	return &s, nil
}

// UserStats aggregates one user's activity.
func (db *DB) UserStats(ctx context.Context, userID string) (*UserActivity, error) {
	if _, err := db.UserByID(ctx, userID); err != nil {
		return nil, err
	}

	var s UserActivity
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM issues WHERE reporter_id = ?),
			(SELECT COUNT(*) FROM issue_upvotes WHERE user_id = ?),
			(SELECT COUNT(*) FROM comments WHERE author_id = ?)
	`, userID, userID, userID).Scan(&s.IssuesReported, &s.UpvotesGiven, &s.CommentsPosted)
	if err != nil {
		return nil, fmt.Errorf("mockd: aggregating user stats: %w", err)
	}
	return &s, nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
