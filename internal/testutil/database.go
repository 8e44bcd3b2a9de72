// Package testutil provides shared test helpers: in-memory storage and accident fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/accidentes/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite store that is closed when the test ends.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// MustCount returns the row count of a table or fails the test.
func MustCount(t *testing.T, store *storage.SQLiteStorage, table string) int {
	t.Helper()

	n, err := store.CountRows(context.Background(), table)
	if err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
