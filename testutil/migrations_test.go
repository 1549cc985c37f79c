package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/migrations"
	"github.com/pkordes/roadtrip-planner/backend/testutil"
)

var schemaTables = []string{"trips", "stops", "trip_shares", "places", "place_search_queries"}

// TestMigrations applies the whole schema, checks every table exists, rolls
// it back and checks they are gone. It skips without TEST_DATABASE_URL.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	// Another package's TestMain may already have migrated this database.
	require.NoError(t, migrations.Reset(ctx, db), "initial reset")

	applied, err := migrations.Up(ctx, db)
	require.NoError(t, err, "up")
	assert.Equal(t, 4, applied)
	for _, table := range schemaTables {
		assert.True(t, tableExists(t, db, table), "expected table %q after up", table)
	}

	again, err := migrations.Up(ctx, db)
	require.NoError(t, err, "second up")
	assert.Zero(t, again, "up must be idempotent")

	require.NoError(t, migrations.Reset(ctx, db), "reset")
	for _, table := range schemaTables {
		assert.False(t, tableExists(t, db, table), "expected table %q to be dropped", table)
	}

	// Leave the schema in place for packages that run after this one.
	_, err = migrations.Up(ctx, db)
	require.NoError(t, err, "restore")
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`
	var exists bool
	require.NoError(t, db.QueryRowContext(context.Background(), q, table).Scan(&exists), "check table %q", table)
	return exists
}
