package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkordes/roadtrip-planner/backend/testutil"
)

// TestMain brings the test database schema up to date once for the whole
// package. Without TEST_DATABASE_URL the Postgres tests skip themselves.
func TestMain(m *testing.M) {
	if err := testutil.MigrateFromEnv(context.Background()); err != nil {
		log.Fatalf("TestMain: %v", err)
	}
	os.Exit(m.Run())
}
