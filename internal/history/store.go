package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultRecentLimit = 20

// Entry is one recorded command execution.
type Entry struct {
	ID         int64
	JobID      string
	Command    []string
	ExitStatus int
	LogPath    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the command ran.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Succeeded reports a zero exit status.
func (e Entry) Succeeded() bool { return e.ExitStatus == 0 }

// Store is the command ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the ledger at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Concurrent CLI invocations serialize on the busy timeout.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores e and returns it with its assigned ID.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if strings.TrimSpace(e.JobID) == "" {
		return Entry{}, errors.New("record command: job id is required")
	}
	if len(e.Command) == 0 {
		return Entry{}, errors.New("record command: command is required")
	}
	commandJSON, err := json.Marshal(e.Command)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal command: %w", err)
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = e.StartedAt
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO command_runs (job_id, command_json, exit_status, log_path, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		e.JobID,
		string(commandJSON),
		e.ExitStatus,
		nullableString(e.LogPath),
		formatTime(e.StartedAt),
		formatTime(e.FinishedAt),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert command run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	e.StartedAt = e.StartedAt.UTC()
	e.FinishedAt = e.FinishedAt.UTC()
	return e, nil
}

// Recent returns up to limit entries, newest first. A limit of zero or less
// uses the default of 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.query(ctx,
		"SELECT "+entryColumns+" FROM command_runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
}

// ForJob returns every entry recorded for jobID in execution order.
func (s *Store) ForJob(ctx context.Context, jobID string) ([]Entry, error) {
	return s.query(ctx,
		"SELECT "+entryColumns+" FROM command_runs WHERE job_id = ? ORDER BY started_at, id",
		jobID,
	)
}

func (s *Store) query(ctx context.Context, stmt string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query command runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan command run: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command runs: %w", err)
	}
	return entries, nil
}
