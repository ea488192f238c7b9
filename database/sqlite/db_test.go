package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_RejectsInvalidTables(t *testing.T) {
	_, err := sqlite.Connect(context.Background(), ":memory:", boxgate.Tables{Redirects: "Bad-Name", RateBuckets: "rate_buckets"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("success after migration", func(t *testing.T) {
		db := setupTestDB(t)
		assert.NoError(t, db.Validate(ctx))
	})

	t.Run("error before migration", func(t *testing.T) {
		db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		assert.Error(t, db.Validate(ctx))
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, db.Migrate(ctx))
		assert.NoError(t, db.Validate(ctx))
	})

	t.Run("ping after close fails", func(t *testing.T) {
		db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
		require.NoError(t, err)
		require.NoError(t, db.Close())
		assert.Error(t, db.Ping(ctx))
	})
}

func TestMigrateAndDropTables(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	tables := randomTables(t)
	require.NoError(t, sqlite.Migrate(ctx, db, tables))
	require.NoError(t, sqlite.ValidateSchema(ctx, db, tables))

	require.NoError(t, sqlite.DropTables(ctx, db, tables))
	assert.Error(t, sqlite.ValidateSchema(ctx, db, tables))

	assert.NoError(t, sqlite.DropTables(ctx, db, tables), "dropping missing tables is a no-op")
}
