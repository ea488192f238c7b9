package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	testPostgresOnce sync.Once
	testPostgresErr  error
	testCleanup      func()
	testDSN          string
)

// getSharedPostgresDatabase returns the DSN of a PostgreSQL container shared
// by every E2E test. It is terminated from TestMain.
func getSharedPostgresDatabase(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL E2E test in short mode")
	}

	testPostgresOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testPostgresErr = err
			return
		}

		testCleanup = func() {
			_ = testcontainers.TerminateContainer(pgContainer)
		}

		testDSN, testPostgresErr = pgContainer.ConnectionString(ctx, "sslmode=disable")
	})

	if testPostgresErr != nil {
		t.Fatalf("failed to start postgres container: %v", testPostgresErr)
	}

	return testDSN
}
