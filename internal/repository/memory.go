package repository

import (
	"context"
	"database/sql"
	"testing"
)

// OpenMemory opens a migrated in-memory SQLite database for tests and closes
// it when the test ends.
func OpenMemory(t testing.TB) *sql.DB {
	t.Helper()

	db, err := NewDB(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db, DriverSQLite); err != nil {
		t.Fatalf("migrate memory db: %v", err)
	}
	return db
}
