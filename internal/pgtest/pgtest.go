// Package pgtest starts a throwaway PostgreSQL for repository integration tests.
package pgtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wonny/niftron/internal/s0_data"
	"github.com/wonny/niftron/pkg/database"
)

// TestDB wraps a migrated test database with cleanup
type TestDB struct {
	*database.DB
	container testcontainers.Container
	connStr   string
}

// SetupTestDB creates a new PostgreSQL container, applies migrations and returns a connected DB
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("niftron_test"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	testDB := &TestDB{container: pgContainer, connStr: connStr}

	if err := s0_data.Migrate(connStr, s0_data.MigrateUp); err != nil {
		testDB.Cleanup(t)
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := database.Open(ctx, connStr)
	if err != nil {
		testDB.Cleanup(t)
		t.Fatalf("failed to connect to test database: %v", err)
	}
	testDB.DB = db

	return testDB
}

// Cleanup closes the pool and terminates the container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	if tdb.DB != nil {
		tdb.DB.Close()
	}

	if tdb.container != nil {
		if err := tdb.container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}
}

// TruncateAll truncates all tables for test isolation
func (tdb *TestDB) TruncateAll(t *testing.T) {
	t.Helper()

	tables := []string{
		"performance_reports",
		"recommendations",
		"features",
		"daily_price_data",
		"data_quality_snapshots",
		"stocks",
	}

	for _, table := range tables {
		_, err := tdb.Pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}

// ConnectionString returns the database connection string
func (tdb *TestDB) ConnectionString() string {
	return tdb.connStr
}
