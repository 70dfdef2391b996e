package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp(t *testing.T) {
	db := openDB(t)

	t.Run("creates the schema", func(t *testing.T) {
		if err := MigrateUp(db); err != nil {
			t.Fatalf("migrating: %v", err)
		}

		for _, table := range []string{"users", "posts_analysis", "batch_runs"} {
			var name string
			err := db.QueryRow(
				"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).
				Scan(&name)
			if err != nil {
				t.Errorf("table %s missing: %v", table, err)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		if err := MigrateUp(db); err != nil {
			t.Fatalf("second migration: %v", err)
		}
	})
}

func TestVersion(t *testing.T) {
	t.Run("fresh database reports zero", func(t *testing.T) {
		db := openDB(t)
		version, dirty, err := Version(db)
		if err != nil {
			t.Fatalf("reading version: %v", err)
		}
		if version != 0 || dirty {
			t.Errorf("version = %d dirty = %v, want 0 false", version, dirty)
		}
	})

	t.Run("migrated database reports the latest version", func(t *testing.T) {
		db := openDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("migrating: %v", err)
		}
		version, dirty, err := Version(db)
		if err != nil {
			t.Fatalf("reading version: %v", err)
		}
		if version != 1 || dirty {
			t.Errorf("version = %d dirty = %v, want 1 false", version, dirty)
		}
	})
}
