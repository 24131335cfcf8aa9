package migrations

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
)

func TestFor(t *testing.T) {
	for _, dialect := range []string{"sqlite", "postgres"} {
		t.Run(dialect, func(t *testing.T) {
			fsys, err := For(dialect)
			if err != nil {
				t.Fatalf("For(%q) error = %v", dialect, err)
			}
			matches, err := fs.Glob(fsys, "*.up.sql")
			if err != nil {
				t.Fatalf("Glob() error = %v", err)
			}
			if len(matches) == 0 {
				t.Errorf("For(%q) has no up migrations", dialect)
			}
		})
	}

	if _, err := For("mysql"); err == nil {
		t.Error("For(mysql) expected error")
	}
}

func TestSQLiteSchemaApplies(t *testing.T) {
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "schema.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	fsys, err := For("sqlite")
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}

	ctx := context.Background()
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{
		"participantes", "projetos", "participantes_projetos", "agencias",
		"financiamentos", "projetos_financiamentos", "producoes",
		"producoes_autores", "audit_logs",
	} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
}
