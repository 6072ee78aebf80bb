package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Source produces the schema text the cache memoizes.
type Source interface {
	Describe(ctx context.Context) (string, error)
}

// Cache memoizes the schema description with a TTL. A refresh that fails
// while a previous description exists serves the stale text instead of
// failing the request; only a cache that never filled surfaces the error.
type Cache struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger

	mu        sync.Mutex
	text      string
	fetchedAt time.Time

	now func() time.Time
}

// Stats reports the cache state for health endpoints.
type Stats struct {
	Cached    bool          `json:"cached"`
	Age       time.Duration `json:"-"`
	AgeSecs   int64         `json:"age_seconds"`
	TTLSecs   int64         `json:"ttl_seconds"`
	FetchedAt time.Time     `json:"fetched_at,omitzero"`
}

// NewCache wraps source with TTL memoization. A zero ttl means every call
// refreshes.
func NewCache(source Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{source: source, ttl: ttl, logger: logger, now: time.Now}
}

// Text returns the cached description, refreshing it when expired.
func (c *Cache) Text(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.text != "" && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.text, nil
	}

	text, err := c.source.Describe(ctx)
	if err != nil {
		if c.text != "" {
			c.logger.Warn("schema refresh failed, serving stale description",
				"age", c.now().Sub(c.fetchedAt), "error", err)
			return c.text, nil
		}
		return "", describeError(err)
	}

	c.text = text
	c.fetchedAt = c.now()
	return c.text, nil
}

// Refresh fetches a fresh description regardless of TTL.
func (c *Cache) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, err := c.source.Describe(ctx)
	if err != nil {
		return "", describeError(err)
	}
	c.text = text
	c.fetchedAt = c.now()
	return c.text, nil
}

// describeError classifies source failures, leaving already-classified
// ones alone.
func describeError(err error) error {
	if errors.Is(err, ErrSchemaUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
}

// Invalidate drops the cached description.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = ""
	c.fetchedAt = time.Time{}
}

// Stats reports whether a description is cached and how old it is.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{TTLSecs: int64(c.ttl / time.Second)}
	if c.text != "" {
		s.Cached = true
		s.Age = c.now().Sub(c.fetchedAt)
		s.AgeSecs = int64(s.Age / time.Second)
		s.FetchedAt = c.fetchedAt
	}
	return s
}
