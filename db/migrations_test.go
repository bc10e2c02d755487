package db

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrate(t *testing.T) {
	conn := openRawDB(t)

	if err := Migrate(conn); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	version, err := getCurrentVersion(conn)
	if err != nil {
		t.Fatalf("getCurrentVersion failed: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("Version = %d, want %d", version, len(migrations))
	}

	for _, table := range []string{"searches", "viral_images"} {
		var name string
		err := conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not created: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	conn := openRawDB(t)

	if err := Migrate(conn); err != nil {
		t.Fatalf("First Migrate failed: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("Migration count = %d, want %d", count, len(migrations))
	}
}

func TestRollback(t *testing.T) {
	conn := openRawDB(t)

	if err := Migrate(conn); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	if err := Rollback(conn); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	version, err := getCurrentVersion(conn)
	if err != nil {
		t.Fatalf("getCurrentVersion failed: %v", err)
	}
	if version != len(migrations)-1 {
		t.Errorf("Version = %d, want %d", version, len(migrations)-1)
	}

	var name string
	err = conn.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='viral_images'",
	).Scan(&name)
	if err != sql.ErrNoRows {
		t.Errorf("Expected viral_images table to be dropped, got err=%v", err)
	}
}

func TestRollbackNoMigrations(t *testing.T) {
	conn := openRawDB(t)

	if err := ensureMigrationsTable(conn); err != nil {
		t.Fatalf("ensureMigrationsTable failed: %v", err)
	}

	if err := Rollback(conn); err == nil {
		t.Error("Expected error when nothing to rollback, got nil")
	}
}
