package executor

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kati2710/BDC/internal/adapter"
	"github.com/Kati2710/BDC/internal/testutil"
)

// stubAdapter serves queries from a sqlmock database and counts reconnects.
type stubAdapter struct {
	db           *sql.DB
	reconnects   int
	reconnectErr error
	pingErr      error
}

func (s *stubAdapter) Connect(_ context.Context, _ adapter.Config) error { return nil }
func (s *stubAdapter) Close() error                                      { return nil }
func (s *stubAdapter) Name() string                                      { return "stub" }
func (s *stubAdapter) Ping(_ context.Context) error                      { return s.pingErr }

func (s *stubAdapter) Query(ctx context.Context, q string) (*adapter.Rows, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return &adapter.Rows{Rows: rows}, nil
}

func (s *stubAdapter) Reconnect(_ context.Context) error {
	s.reconnects++
	return s.reconnectErr
}

func newTestExecutor(t *testing.T) (*Executor, *stubAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	stub := &stubAdapter{db: db}
	e := New(stub, testutil.NewTestLogger(t))
	e.backoffBase = time.Millisecond
	return e, stub, mock
}

func TestRunReturnsCoercedRows(t *testing.T) {
	e, _, mock := newTestExecutor(t)

	query := "SELECT id, razao_social, natureza, criado_em, capital_social FROM empresas LIMIT 2"
	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "razao_social", "natureza", "criado_em", "capital_social"}).
			AddRow(int64(42), []byte("ACME LTDA"), nil, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), 1500.5).
			AddRow(int64(9007199254740993), []byte("GLOBO SA"), "2046", nil, nil))

	rows, err := e.Run(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(42), rows[0]["id"])
	assert.Equal(t, "ACME LTDA", rows[0]["razao_social"])
	assert.Nil(t, rows[0]["natureza"])
	assert.Equal(t, "2025-07-01T12:00:00Z", rows[0]["criado_em"])
	assert.Equal(t, 1500.5, rows[0]["capital_social"])

	// 2^53+1 stays numeric; json renders the full decimal form and the
	// precision loss happens, if at all, in a JavaScript consumer.
	assert.Equal(t, int64(9007199254740993), rows[1]["id"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunReconnectsOnClosedConnection(t *testing.T) {
	e, stub, mock := newTestExecutor(t)

	query := "SELECT count(*) FROM empresas"
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnError(errors.New("write tcp 10.0.0.2:443: broken pipe"))
	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(
		sqlmock.NewRows([]string{"count_star()"}).AddRow(int64(63728197)))

	rows, err := e.Run(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(63728197), rows[0]["count_star()"])
	assert.Equal(t, 1, stub.reconnects)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunGivesUpAfterThreeAttempts(t *testing.T) {
	e, stub, mock := newTestExecutor(t)

	query := "SELECT 1"
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(query)).
			WillReturnError(errors.New("database connection closed"))
	}

	_, err := e.Run(context.Background(), query)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
	assert.Equal(t, 3, stub.reconnects)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDoesNotRetrySyntaxErrors(t *testing.T) {
	e, stub, mock := newTestExecutor(t)

	query := "SELECT nope FROM empresas"
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnError(errors.New(`Binder Error: column "nope" not found`))

	_, err := e.Run(context.Background(), query)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 attempt(s)")
	assert.Contains(t, err.Error(), "Binder Error")
	assert.Equal(t, 0, stub.reconnects)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountWrapsStatement(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wrapped string
	}{
		{
			name:    "strips trailing limit",
			sql:     "SELECT * FROM empresas WHERE uf = 'SP' LIMIT 100",
			wrapped: "SELECT COUNT(*) FROM (SELECT * FROM empresas WHERE uf = 'SP') AS t",
		},
		{
			name:    "strips limit with offset",
			sql:     "SELECT * FROM empresas LIMIT 10 OFFSET 20",
			wrapped: "SELECT COUNT(*) FROM (SELECT * FROM empresas) AS t",
		},
		{
			name:    "keeps inner limit",
			sql:     "SELECT * FROM (SELECT * FROM empresas LIMIT 5) q",
			wrapped: "SELECT COUNT(*) FROM (SELECT * FROM (SELECT * FROM empresas LIMIT 5) q) AS t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, mock := newTestExecutor(t)
			mock.ExpectQuery(regexp.QuoteMeta(tt.wrapped)).WillReturnRows(
				sqlmock.NewRows([]string{"count_star()"}).AddRow(int64(1234)))

			total, ok := e.Count(context.Background(), tt.sql)
			assert.True(t, ok)
			assert.Equal(t, int64(1234), total)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCountReportsUnavailableOnError(t *testing.T) {
	e, _, mock := newTestExecutor(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(errors.New("Out of Memory Error: could not allocate"))

	total, ok := e.Count(context.Background(), "SELECT * FROM empresas")
	assert.False(t, ok)
	assert.Zero(t, total)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bytes to string", []byte("abc"), "abc"},
		{"small int64", int64(7), int64(7)},
		{"int64 beyond 2^53 stays numeric", int64(-9007199254740993), int64(-9007199254740993)},
		{"uint64 passes through", uint64(1) << 60, uint64(1) << 60},
		{"big int in int64 range", big.NewInt(500), int64(500)},
		{"big int beyond int64", new(big.Int).Lsh(big.NewInt(1), 70), new(big.Int).Lsh(big.NewInt(1), 70)},
		{"string", "já", "já"},
		{"bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerce(tt.in))
		})
	}
}

func TestPingPassthrough(t *testing.T) {
	e, stub, _ := newTestExecutor(t)
	assert.NoError(t, e.Ping(context.Background()))

	stub.pingErr = errors.New("no session")
	assert.Error(t, e.Ping(context.Background()))
}
