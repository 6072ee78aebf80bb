package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresName(t *testing.T) {
	assert.Equal(t, "postgres", NewPostgres(nil).Name())
}

func TestPostgresConnectRequiresDSN(t *testing.T) {
	a := NewPostgres(nil)
	err := a.Connect(context.Background(), Config{Type: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn")
}

func TestPostgresNotConnected(t *testing.T) {
	ctx := context.Background()
	a := NewPostgres(nil)

	_, err := a.Query(ctx, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	err = a.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	require.NoError(t, a.Close())
}
