package database

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB returns a migrated connection pool for integration tests.
// Skips the test if TEST_DATABASE_URL is not set.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := RunMigrations(ctx, pool); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return pool
}

// CleanupTables empties the token slots.
func CleanupTables(t *testing.T, db PGXDB) {
	t.Helper()

	if _, err := db.Exec(context.Background(), "TRUNCATE TABLE session_tokens"); err != nil {
		t.Fatalf("failed to truncate session_tokens: %v", err)
	}
}
