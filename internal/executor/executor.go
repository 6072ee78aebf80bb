// Package executor runs approved statements against the warehouse and
// shapes row sets for JSON responses.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"regexp"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Kati2710/BDC/internal/adapter"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 250 * time.Millisecond
)

// Executor executes read-only statements with a bounded reconnect retry.
// Statements reaching it are SELECTs, so re-running one after a dropped
// connection is safe.
type Executor struct {
	adapter     adapter.Adapter
	logger      *slog.Logger
	maxAttempts uint64
	backoffBase time.Duration
}

// New creates an executor over the given adapter.
func New(a adapter.Adapter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{
		adapter:     a,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
}

// Run executes the statement and returns its rows as JSON-safe maps.
// Connection-class failures trigger a reconnect and retry with exponential
// backoff, up to three attempts in total; other errors surface immediately.
func (e *Executor) Run(ctx context.Context, sqlStr string) ([]map[string]any, error) {
	var rows []map[string]any
	attempt := 0

	backoff := retry.WithMaxRetries(e.maxAttempts-1,
		retry.WithJitter(50*time.Millisecond, retry.NewExponential(e.backoffBase)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		result, err := e.query(ctx, sqlStr)
		if err == nil {
			rows = result
			return nil
		}
		if !adapter.IsConnClosed(err) {
			return err
		}

		e.logger.Warn("warehouse connection lost, reconnecting",
			"attempt", attempt, "error", err)
		if rerr := e.adapter.Reconnect(ctx); rerr != nil {
			return retry.RetryableError(fmt.Errorf("reconnect: %w", rerr))
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("query failed after %d attempt(s): %w", attempt, err)
	}
	return rows, nil
}

func (e *Executor) query(ctx context.Context, sqlStr string) ([]map[string]any, error) {
	rows, err := e.adapter.Query(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := make([]map[string]any, 0, 16)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = coerce(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// coerce maps driver values onto JSON-safe ones. Wide integers stay numeric:
// encoding/json emits their full decimal form, and a value beyond 2^53 losing
// precision in a JavaScript consumer is an accepted edge case, preferred over
// switching the column's type to string.
func coerce(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case *big.Int:
		// HUGEINT columns arrive as *big.Int; it marshals as a plain number.
		if val.IsInt64() {
			return val.Int64()
		}
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	default:
		return val
	}
}

var trailingLimitPattern = regexp.MustCompile(`(?i)\s+limit\s+\d+(\s+offset\s+\d+)?\s*$`)

// Count wraps the statement in SELECT COUNT(*) to report its unbounded
// cardinality, stripping a trailing LIMIT first. It never fails a request:
// any error reports the count as unavailable.
func (e *Executor) Count(ctx context.Context, sqlStr string) (int64, bool) {
	inner := trailingLimitPattern.ReplaceAllString(sqlStr, "")
	wrapped := "SELECT COUNT(*) FROM (" + inner + ") AS t"

	rows, err := e.adapter.Query(ctx, wrapped)
	if err != nil {
		e.logger.Debug("count unavailable", "error", err)
		return 0, false
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return 0, false
	}
	var total int64
	if err := rows.Scan(&total); err != nil {
		e.logger.Debug("count unavailable", "error", err)
		return 0, false
	}
	if err := rows.Err(); err != nil {
		return 0, false
	}
	return total, true
}

// Ping verifies the adapter connection.
func (e *Executor) Ping(ctx context.Context) error {
	return e.adapter.Ping(ctx)
}
