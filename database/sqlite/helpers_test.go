package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func randomTables(t *testing.T) boxgate.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return boxgate.Tables{
		Redirects:   "redirects_" + suffix,
		RateBuckets: "rate_buckets_" + suffix,
	}
}

// setupTestDB connects to a migrated in-memory database with unique tables.
func setupTestDB(t *testing.T) *sqlite.Database {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
	require.NoError(t, err, "failed to connect")

	err = db.Migrate(ctx)
	require.NoError(t, err, "failed to migrate")

	t.Cleanup(func() { _ = db.Close() })

	return db
}
