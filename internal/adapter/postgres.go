package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter { return NewPostgres(logger) })
}

// Postgres implements Adapter for a Postgres mirror of the warehouse.
// Unlike DuckDB, the pool keeps its default size: Postgres sessions handle
// concurrent statements fine.
type Postgres struct {
	mu     sync.Mutex
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

// NewPostgres creates a new Postgres adapter instance.
func NewPostgres(logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Postgres{logger: logger}
}

// Name returns the adapter name.
func (a *Postgres) Name() string {
	return "postgres"
}

// Connect opens the pool described by cfg.DSN.
func (a *Postgres) Connect(ctx context.Context, cfg Config) error {
	if cfg.DSN == "" {
		return fmt.Errorf("postgres adapter requires a dsn")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.mu.Lock()
	a.db = db
	a.cfg = cfg
	a.mu.Unlock()

	a.logger.Debug("postgres connected")
	return nil
}

// Close closes the pool.
func (a *Postgres) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Reconnect drops the pool and dials again with the same config.
func (a *Postgres) Reconnect(ctx context.Context) error {
	a.mu.Lock()
	cfg := a.cfg
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	a.mu.Unlock()

	a.logger.Warn("postgres reconnecting")
	return a.Connect(ctx, cfg)
}

// Query runs a read-only statement.
func (a *Postgres) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	db := a.handle()
	if db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// Ping verifies the pool is alive.
func (a *Postgres) Ping(ctx context.Context) error {
	db := a.handle()
	if db == nil {
		return fmt.Errorf("database connection not established")
	}
	return db.PingContext(ctx)
}

func (a *Postgres) handle() *sql.DB {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db
}

// Ensure Postgres implements the Adapter interface
var _ Adapter = (*Postgres)(nil)
