package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/gitrank/internal/domain/model"
	"github.com/okian/gitrank/pkg/metrics"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and initializes the schema.
// Use ":memory:" for an ephemeral store in tests.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// SQLite allows one writer; serialize access through one connection to
	// avoid SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing database handle. Schema must already be
// initialized.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		username    TEXT PRIMARY KEY,
		profile_url TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS scores (
		username          TEXT PRIMARY KEY REFERENCES users(username),
		prs_opened        INTEGER NOT NULL DEFAULT 0,
		prs_merged        INTEGER NOT NULL DEFAULT 0,
		issues_created    INTEGER NOT NULL DEFAULT 0,
		issues_closed     INTEGER NOT NULL DEFAULT 0,
		repos_contributed INTEGER NOT NULL DEFAULT 0,
		stars_given       INTEGER NOT NULL DEFAULT 0,
		commits           INTEGER NOT NULL DEFAULT 0,
		score             REAL    NOT NULL DEFAULT 0,
		achievements      TEXT    NOT NULL DEFAULT '[]',
		last_updated      TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RegisterUser inserts a new tracked user.
func (s *SQLiteStore) RegisterUser(ctx context.Context, username, profileURL string) error {
	const query = `INSERT INTO users (username, profile_url, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, username, profileURL, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("register %q: %w", username, ErrAlreadyRegistered)
		}
		return fmt.Errorf("register %q: %w", username, err)
	}
	return nil
}

// ListUsernames returns every registered username in registration order.
func (s *SQLiteStore) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return names, nil
}

// LifetimeCounts returns the stored lifetime counts for a user. A registered
// user without computed state yields a zero record.
func (s *SQLiteStore) LifetimeCounts(ctx context.Context, username string) (model.ActivityRecord, error) {
	const query = `
	SELECT prs_opened, prs_merged, issues_created, issues_closed,
	       repos_contributed, stars_given, commits
	FROM scores WHERE username = ?`

	var rec model.ActivityRecord
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&rec.PRsOpened, &rec.PRsMerged, &rec.IssuesCreated, &rec.IssuesClosed,
		&rec.ReposContributed, &rec.StarsGiven, &rec.Commits,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ActivityRecord{}, nil
	}
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("lifetime counts for %q: %w", username, err)
	}
	return rec, nil
}

// Achievements returns the earned achievement set for a user. A registered
// user without computed state yields an empty set.
func (s *SQLiteStore) Achievements(ctx context.Context, username string) ([]string, error) {
	var tags string
	err := s.db.QueryRowContext(ctx, `SELECT achievements FROM scores WHERE username = ?`, username).Scan(&tags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("achievements for %q: %w", username, err)
	}

	var names []string
	if err := json.Unmarshal([]byte(tags), &names); err != nil {
		return nil, fmt.Errorf("decode achievements for %q: %w", username, err)
	}
	return names, nil
}

// UpsertResult atomically writes counts, score and achievements in one
// transaction.
func (s *SQLiteStore) UpsertResult(ctx context.Context, username string, counts model.ActivityRecord, score model.ScoreBreakdown, achievements []string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency(float64(time.Since(start).Milliseconds()))
	}()

	tags, err := json.Marshal(achievements)
	if err != nil {
		return fmt.Errorf("marshal achievements for %q: %w", username, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert for %q: %w", username, err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
	INSERT INTO scores (
		username, prs_opened, prs_merged, issues_created, issues_closed,
		repos_contributed, stars_given, commits, score, achievements, last_updated
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET
		prs_opened        = MAX(prs_opened, excluded.prs_opened),
		prs_merged        = MAX(prs_merged, excluded.prs_merged),
		issues_created    = MAX(issues_created, excluded.issues_created),
		issues_closed     = MAX(issues_closed, excluded.issues_closed),
		repos_contributed = MAX(repos_contributed, excluded.repos_contributed),
		stars_given       = MAX(stars_given, excluded.stars_given),
		commits           = MAX(commits, excluded.commits),
		score             = excluded.score,
		achievements      = excluded.achievements,
		last_updated      = excluded.last_updated`

	_, err = tx.ExecContext(ctx, query,
		username,
		counts.PRsOpened, counts.PRsMerged, counts.IssuesCreated, counts.IssuesClosed,
		counts.ReposContributed, counts.StarsGiven, counts.Commits,
		score.Total, string(tags), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		metrics.RecordPersistError()
		return fmt.Errorf("upsert result for %q: %w", username, err)
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordPersistError()
		return fmt.Errorf("commit upsert for %q: %w", username, err)
	}
	return nil
}

// Leaderboard returns the top-N entries ordered by score desc. Registered
// users with no computed state yet rank at the bottom with a zero score.
func (s *SQLiteStore) Leaderboard(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	const query = `
	SELECT u.username, COALESCE(s.score, 0), COALESCE(s.achievements, '[]'),
	       COALESCE(s.last_updated, '')
	FROM users u
	LEFT JOIN scores s ON s.username = u.username
	ORDER BY COALESCE(s.score, 0) DESC, u.username ASC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	rank := 0
	for rows.Next() {
		rank++
		entry, err := scanEntry(rows, rank)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

// Rank returns the rank and score for one user.
func (s *SQLiteStore) Rank(ctx context.Context, username string) (Entry, error) {
	const query = `
	SELECT u.username, COALESCE(s.score, 0), COALESCE(s.achievements, '[]'),
	       COALESCE(s.last_updated, ''),
	       (SELECT COUNT(*) + 1
	        FROM users u2 LEFT JOIN scores s2 ON s2.username = u2.username
	        WHERE COALESCE(s2.score, 0) > COALESCE(s.score, 0)
	           OR (COALESCE(s2.score, 0) = COALESCE(s.score, 0) AND u2.username < u.username))
	FROM users u
	LEFT JOIN scores s ON s.username = u.username
	WHERE u.username = ?`

	var (
		entry       Entry
		tags        string
		lastUpdated string
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&entry.Username, &entry.Score, &tags, &lastUpdated, &entry.Rank,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("rank for %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("rank for %q: %w", username, err)
	}

	if err := json.Unmarshal([]byte(tags), &entry.Achievements); err != nil {
		return Entry{}, fmt.Errorf("decode achievements for %q: %w", username, err)
	}
	if lastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339, lastUpdated); err == nil {
			entry.LastUpdated = ts
		}
	}
	return entry, nil
}

// Count returns the number of registered users.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// scanEntry reads one leaderboard row.
func scanEntry(rows *sql.Rows, rank int) (Entry, error) {
	var (
		entry       Entry
		tags        string
		lastUpdated string
	)
	if err := rows.Scan(&entry.Username, &entry.Score, &tags, &lastUpdated); err != nil {
		return Entry{}, fmt.Errorf("scan leaderboard row: %w", err)
	}
	entry.Rank = rank
	if err := json.Unmarshal([]byte(tags), &entry.Achievements); err != nil {
		return Entry{}, fmt.Errorf("decode achievements for %q: %w", entry.Username, err)
	}
	if lastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339, lastUpdated); err == nil {
			entry.LastUpdated = ts
		}
	}
	return entry, nil
}

// isUniqueViolation reports whether err is a primary-key/unique conflict.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
