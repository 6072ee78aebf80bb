// Package adapter connects the gateway to its analytical warehouse. The
// surface is deliberately read-only: statements reaching an adapter have
// already passed the guard, and nothing in the gateway writes to the
// warehouse.
package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
)

// Config holds the connection parameters for a warehouse.
type Config struct {
	// Type specifies the adapter: "duckdb" or "postgres".
	Type string

	// Path is the DuckDB database file. Empty selects an in-memory
	// database unless a MotherDuck database is configured.
	Path string

	// Database is the MotherDuck database name for md: connections.
	Database string

	// MotherDuckToken authenticates md: connections.
	MotherDuckToken string

	// DSN is the postgres connection string.
	DSN string
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter is the warehouse contract used by the describer and the executor.
type Adapter interface {
	// Connect establishes the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Query runs a read-only statement and returns its rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Reconnect drops the current connection and dials again with the
	// config from the last Connect.
	Reconnect(ctx context.Context) error

	// Name returns the adapter name, e.g. "duckdb".
	Name() string
}

// connClosedFragments are substrings of driver error messages that indicate
// the session is gone rather than the statement being wrong. Matching is
// textual because the drivers expose no typed error for this class.
var connClosedFragments = []string{
	"connection is already closed",
	"connection was never established",
	"bad connection",
	"connection closed",
	"connection refused",
	"connection reset",
	"broken pipe",
	"unexpected eof",
}

// IsConnClosed reports whether err looks like a dropped or never-opened
// connection, the class of failure worth a reconnect and retry.
func IsConnClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range connClosedFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
