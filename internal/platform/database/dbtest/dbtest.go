// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"filedrop/internal/platform/config"
	"filedrop/internal/platform/database"

	"github.com/jmoiron/sqlx"
)

func New(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, URL: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}
