package db_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowd-io/knowd/internal/db"
	"github.com/knowd-io/knowd/test/testutil"
)

func TestMigrationsRecordedAndIdempotent(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	// OpenTestDB already migrated once; a second run must be a no-op
	require.NoError(t, db.ApplyMigrations(conn))

	var applied int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	require.Greater(t, applied, 0)

	var name string
	require.NoError(t, conn.QueryRow(
		`SELECT filename FROM schema_migrations ORDER BY filename LIMIT 1`,
	).Scan(&name))
	require.Equal(t, "0001_init.sql", name)
}
