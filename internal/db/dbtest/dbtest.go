// Package dbtest connects integration tests to a real Postgres.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

// EnvDSN names the variable that enables the Postgres-backed tests.
const EnvDSN = "CLINIC_TEST_POSTGRES_DSN"

// Pool returns a migrated pool, or skips the test when EnvDSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}

	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

// InsertDoctor adds a doctor row with a fresh id so runs never collide.
func InsertDoctor(t *testing.T, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO doctors (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}

func InsertPatient(t *testing.T, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO patients (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}
