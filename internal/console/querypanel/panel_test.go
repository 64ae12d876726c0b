package querypanel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startWarehouse(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping warehouse test in short mode")
	}
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("vault"),
		postgres.WithUsername("vault"),
		postgres.WithPassword("vault"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestOpenWithoutDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPanelAgainstPostgres(t *testing.T) {
	dsn := startWarehouse(t)
	ctx := context.Background()

	p, err := Open(ctx, Config{DSN: dsn, RowLimit: 3, StatementTimeout: 500 * time.Millisecond})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.db.ExecContext(ctx, `CREATE SCHEMA dv;
		CREATE TABLE dv.hub_customer (id int, name text);
		INSERT INTO dv.hub_customer SELECT g, 'c' || g FROM generate_series(1, 5) g;`)
	require.NoError(t, err)

	res, err := p.Run(ctx, "SELECT id, name FROM dv.hub_customer ORDER BY id;")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Len(t, res.Rows, 3)
	assert.True(t, res.Truncated)
	assert.Equal(t, "c1", res.Rows[0][1])

	res, err = p.Preview(ctx, "dv", "hub_customer")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)

	_, err = p.Preview(ctx, "dv", "hub_customer; drop")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	// Writes through a data-modifying CTE are refused by the read-only transaction.
	_, err = p.Run(ctx, "WITH d AS (DELETE FROM dv.hub_customer RETURNING id) SELECT * FROM d")
	require.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "SQLSTATE 25006")

	_, err = p.Run(ctx, "SELECT * FROM dv.missing")
	require.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "SQLSTATE 42P01")

	_, err = p.Run(ctx, "SELECT pg_sleep(2)")
	assert.ErrorIs(t, err, ErrQueryTimeout)
}
