// Package dbtest opens throwaway SQLite databases with the real schema applied.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
	"github.com/nerrad567/sigpesq-core/migrations"
)

// Open returns a migrated SQLite database in t's temp dir, closed on cleanup.
func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:      string(database.DialectSQLite),
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	fsys, err := migrations.For(string(database.DialectSQLite))
	if err != nil {
		t.Fatalf("loading migrations: %v", err)
	}
	if err := db.Migrate(context.Background(), fsys); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db
}

// Exec runs a fixture statement and fails the test on error.
func Exec(t testing.TB, db *database.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("fixture %q: %v", query, err)
	}
}
