package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setTestMigrations(t *testing.T, files map[string]string) {
	t.Helper()
	prevFS, prevDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() { MigrationsFS, MigrationsDir = prevFS, prevDir })

	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	MigrationsFS = fsys
	MigrationsDir = "."
}

func TestOpenCreatesDirectoryAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	path := filepath.Join(dir, "cloud.db")

	db, err := Open(Config{Path: path, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestMigrateAppliesInOrder(t *testing.T) {
	db := openTestDB(t)
	setTestMigrations(t, map[string]string{
		"20260301_000001_create_things.up.sql": "CREATE TABLE things (id TEXT PRIMARY KEY);",
		"20260301_000002_add_name.up.sql":      "ALTER TABLE things ADD COLUMN name TEXT;",
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The second migration alters the table created by the first, so a
	// successful insert into both columns proves ordering.
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "INSERT INTO things (id, name) VALUES ('a', 'b')"); err != nil {
		t.Errorf("inserting into migrated table: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("counting applied migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("applied migrations = %d, want 2", count)
	}
}

func TestMigrateFromRootOfFS(t *testing.T) {
	db := openTestDB(t)

	// The embedded layout: files at the root of the filesystem with
	// MigrationsDir ".". Joined paths must stay fs.ValidPath-clean.
	setTestMigrations(t, map[string]string{
		"20260301_000001_create_things.up.sql": "CREATE TABLE things (id TEXT PRIMARY KEY);",
	})
	if MigrationsDir != "." {
		t.Fatalf("MigrationsDir = %q, want .", MigrationsDir)
	}

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.ExecContext(context.Background(), "INSERT INTO things (id) VALUES ('a')"); err != nil {
		t.Errorf("inserting into migrated table: %v", err)
	}
}

func TestMigrateFromSubdirectory(t *testing.T) {
	db := openTestDB(t)

	prevFS, prevDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() { MigrationsFS, MigrationsDir = prevFS, prevDir })
	MigrationsFS = fstest.MapFS{
		"sql/20260301_000001_create_things.up.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);"),
		},
	}
	MigrationsDir = "sql"

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	setTestMigrations(t, map[string]string{
		"20260301_000001_create_things.up.sql": "CREATE TABLE things (id TEXT PRIMARY KEY);",
	})

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateRejectsBadFilename(t *testing.T) {
	db := openTestDB(t)
	setTestMigrations(t, map[string]string{
		"nonsense.up.sql": "CREATE TABLE things (id TEXT);",
	})

	if err := db.Migrate(context.Background()); err == nil {
		t.Error("Migrate() accepted a malformed migration filename")
	}
}
