package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// Minimal schema matching internal/migrate/sql/0001_settings.sql for in-memory tests.
const testSchema = `
CREATE TABLE IF NOT EXISTS settings (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
		t.Fatalf("exec schema: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	})
	return db
}

func TestGetSetting_Missing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	v, ok, err := repo.GetSetting(context.Background(), KeyTempThreshold)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if ok || v != "" {
		t.Errorf("GetSetting(missing) = %q, %v; want \"\", false", v, ok)
	}
}

func TestPutSettings_InsertThenUpdate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.PutSettings(ctx, map[string]string{KeyTempThreshold: "25", KeyHumidThreshold: "60"}); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}
	if err := repo.PutSettings(ctx, map[string]string{KeyTempThreshold: "18.5"}); err != nil {
		t.Fatalf("PutSettings update: %v", err)
	}

	tests := map[string]string{KeyTempThreshold: "18.5", KeyHumidThreshold: "60"}
	for key, want := range tests {
		got, ok, err := repo.GetSetting(ctx, key)
		if err != nil || !ok {
			t.Fatalf("GetSetting(%q) = %q, %v, %v", key, got, ok, err)
		}
		if got != want {
			t.Errorf("GetSetting(%q) = %q; want %q", key, got, want)
		}
	}
}

func TestPutSettings_EmptyKeyRollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	if err := repo.PutSettings(ctx, map[string]string{"": "x"}); err == nil {
		t.Fatal("PutSettings with empty key = nil; want error")
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("settings rows = %d; want 0", n)
	}
}

func TestPutSettings_Noop(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if err := repo.PutSettings(context.Background(), nil); err != nil {
		t.Fatalf("PutSettings(nil) = %v; want nil", err)
	}
}

func TestGetSetting_ClosedDB(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = db.Close()
	repo := NewRepository(db)

	if _, _, err := repo.GetSetting(context.Background(), KeyTempThreshold); err == nil {
		t.Fatal("GetSetting on closed db = nil error; want error")
	}
}
