package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/homedcloud/homed-cloud/internal/infrastructure/database"
	_ "github.com/homedcloud/homed-cloud/migrations" // registers the schema
)

// testDB opens a temporary SQLite database with the real schema applied.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

// createTestUser inserts a user and returns it.
func createTestUser(t *testing.T, db *database.DB, name string) *User {
	t.Helper()

	u := &User{Name: name}
	if err := NewUserRepository(db.DB).Create(context.Background(), u); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return u
}
