package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDB(logger) })
}

// DuckDB implements Adapter for local DuckDB files, in-memory databases
// and MotherDuck.
type DuckDB struct {
	mu     sync.Mutex
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

// NewDuckDB creates a new DuckDB adapter instance.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DuckDB{logger: logger}
}

// Name returns the adapter name.
func (a *DuckDB) Name() string {
	return "duckdb"
}

// buildDuckDBDSN maps the config onto a driver DSN.
// Priority: file path > MotherDuck (md:) > in-memory.
func buildDuckDBDSN(cfg Config) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	if cfg.Database != "" {
		dsn := "md:" + cfg.Database
		if cfg.MotherDuckToken != "" {
			dsn += "?motherduck_token=" + url.QueryEscape(cfg.MotherDuckToken)
		}
		return dsn
	}
	return ":memory:"
}

// Connect opens the database and pins the pool to a single connection.
// DuckDB sessions are not safe for concurrent statements, so every query
// is serialized through that one connection; waiters queue in the pool
// and honor their context deadlines.
func (a *DuckDB) Connect(ctx context.Context, cfg Config) error {
	db, err := sql.Open("duckdb", buildDuckDBDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.mu.Lock()
	a.db = db
	a.cfg = cfg
	a.mu.Unlock()

	a.logger.Debug("duckdb connected",
		"motherduck", cfg.Path == "" && cfg.Database != "",
		"database", cfg.Database)
	return nil
}

// Close closes the connection.
func (a *DuckDB) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Reconnect drops the current session and dials again with the same config.
func (a *DuckDB) Reconnect(ctx context.Context) error {
	a.mu.Lock()
	cfg := a.cfg
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	a.mu.Unlock()

	a.logger.Warn("duckdb reconnecting")
	return a.Connect(ctx, cfg)
}

// Query runs a read-only statement.
func (a *DuckDB) Query(ctx context.Context, sqlStr string) (*Rows, error) {
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

// Ping verifies the connection is alive.
func (a *DuckDB) Ping(ctx context.Context) error {
	db := a.handle()
	if db == nil {
		return fmt.Errorf("database connection not established")
	}
	return db.PingContext(ctx)
}

func (a *DuckDB) handle() *sql.DB {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db
}

// Ensure DuckDB implements the Adapter interface
var _ Adapter = (*DuckDB)(nil)
