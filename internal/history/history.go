// Package history persists answered questions in a local SQLite database so
// operators can review what was asked and what ran.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

//go:embed migrations/*.sql
var migrations embed.FS

// Entry statuses.
const (
	StatusOK       = "ok"
	StatusNoAnswer = "no_answer"
	StatusError    = "error"
)

// Entry is one recorded question with the statement that ran for it.
type Entry struct {
	ID         string    `json:"id"`
	AskedAt    time.Time `json:"asked_at"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	RowCount   int       `json:"rows"`
	DurationMS int64     `json:"duration_ms"`
}

// Store is the SQLite-backed query log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the log at path, creating parent directories and running
// pending migrations. Use ":memory:" for a throwaway store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	// One connection serializes writers and keeps SQLITE_BUSY away.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run history migrations: %w", err)
	}

	logger.Debug("history store ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts the entry, filling ID and AskedAt when unset.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return fmt.Errorf("history store not opened")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.AskedAt.IsZero() {
		e.AskedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, asked_at, question, sql_text, status, error, row_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AskedAt.UTC().Format(time.RFC3339Nano), e.Question, e.SQL,
		e.Status, e.Error, e.RowCount, e.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first. Limit is clamped to
// [1, 500]; zero selects the default of 50.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("history store not opened")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, asked_at, question, sql_text, status, error, row_count, duration_ms
		 FROM queries ORDER BY asked_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var askedAt string
		if err := rows.Scan(&e.ID, &askedAt, &e.Question, &e.SQL,
			&e.Status, &e.Error, &e.RowCount, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		if e.AskedAt, err = time.Parse(time.RFC3339Nano, askedAt); err != nil {
			return nil, fmt.Errorf("parse asked_at %q: %w", askedAt, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
