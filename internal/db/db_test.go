package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestConnect_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.db")
	database, err := Connect(context.Background(), DriverSQLite, path)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer database.Close()

	var mode string
	if err := database.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected wal journal mode, got %q", mode)
	}
}

func TestConnect_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
	}{
		{"empty dsn", DriverSQLite, ""},
		{"unknown driver", "mysql", "user@/pos"},
		{"unreachable directory", DriverSQLite, filepath.Join(t.TempDir(), "missing", "dir", "pos.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Connect(context.Background(), tt.driver, tt.dsn); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestConnect_Postgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	database, err := Connect(context.Background(), DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	database.Close()
}
