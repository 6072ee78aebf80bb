package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kati2710/BDC/internal/testutil"
)

// stubSource counts Describe calls and can be switched to failing.
type stubSource struct {
	text  string
	err   error
	calls int
}

func (s *stubSource) Describe(ctx context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func TestCacheHitWithinTTL(t *testing.T) {
	src := &stubSource{text: "schema v1"}
	c := NewCache(src, time.Hour, testutil.NewTestLogger(t))

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	got, err := c.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "schema v1", got)

	now = now.Add(30 * time.Minute)
	got, err = c.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "schema v1", got)
	assert.Equal(t, 1, src.calls, "second call within TTL must not hit the source")
}

func TestCacheExpiry(t *testing.T) {
	src := &stubSource{text: "schema v1"}
	c := NewCache(src, time.Hour, nil)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	_, err := c.Text(context.Background())
	require.NoError(t, err)

	src.text = "schema v2"
	now = now.Add(61 * time.Minute)

	got, err := c.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "schema v2", got)
	assert.Equal(t, 2, src.calls)
}

func TestCacheServesStaleOnFailure(t *testing.T) {
	src := &stubSource{text: "schema v1"}
	c := NewCache(src, time.Hour, testutil.NewTestLogger(t))

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	_, err := c.Text(context.Background())
	require.NoError(t, err)

	src.err = errors.New("warehouse down")
	now = now.Add(2 * time.Hour)

	got, err := c.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "schema v1", got)
}

func TestCacheErrorWhenNeverFilled(t *testing.T) {
	src := &stubSource{err: errors.New("warehouse down")}
	c := NewCache(src, time.Hour, nil)

	_, err := c.Text(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaUnavailable)
	assert.Contains(t, err.Error(), "warehouse down")
}

func TestCacheRefreshForces(t *testing.T) {
	src := &stubSource{text: "schema v1"}
	c := NewCache(src, time.Hour, nil)

	_, err := c.Text(context.Background())
	require.NoError(t, err)

	src.text = "schema v2"
	got, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "schema v2", got)

	// Refresh failure keeps the previous text for subsequent reads.
	src.err = errors.New("boom")
	_, err = c.Refresh(context.Background())
	require.Error(t, err)

	src.err = nil
	got, err = c.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "schema v2", got)
}

func TestCacheInvalidate(t *testing.T) {
	src := &stubSource{text: "schema v1"}
	c := NewCache(src, time.Hour, nil)

	_, err := c.Text(context.Background())
	require.NoError(t, err)

	c.Invalidate()

	_, err = c.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCacheStats(t *testing.T) {
	src := &stubSource{text: "schema v1"}
	c := NewCache(src, time.Hour, nil)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	s := c.Stats()
	assert.False(t, s.Cached)
	assert.Equal(t, int64(3600), s.TTLSecs)

	_, err := c.Text(context.Background())
	require.NoError(t, err)

	now = now.Add(90 * time.Second)
	s = c.Stats()
	assert.True(t, s.Cached)
	assert.Equal(t, int64(90), s.AgeSecs)
	assert.Equal(t, time.Unix(1000, 0), s.FetchedAt)
}
