package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected http.addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.Store.Prefer != "structured" || cfg.Store.Driver != "sqlite3" {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Remote.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s remote timeout, got %v", cfg.Remote.RequestTimeout)
	}
	if cfg.Sync.Schedule != "@every 1m" {
		t.Errorf("expected default schedule, got %q", cfg.Sync.Schedule)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POS_STORE_PREFER", "flat")
	t.Setenv("POS_STORE_FLAT_KIND", "file")
	t.Setenv("POS_REMOTE_REQUEST_TIMEOUT", "750ms")
	t.Setenv("POS_TERMINAL_OUTLET_ID", "O1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Store.Prefer != "flat" || cfg.Store.FlatKind != "file" {
		t.Errorf("env overrides not applied: %+v", cfg.Store)
	}
	if cfg.Remote.RequestTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", cfg.Remote.RequestTimeout)
	}
	if cfg.Terminal.OutletID != "O1" {
		t.Errorf("expected outlet O1, got %q", cfg.Terminal.OutletID)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terminal.yaml")
	content := "store:\n  driver: pgx\n  dsn: postgres://localhost/pos\nsync:\n  schedule: \"@every 30s\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Store.Driver != "pgx" || cfg.Store.DSN != "postgres://localhost/pos" {
		t.Errorf("file values not applied: %+v", cfg.Store)
	}
	if cfg.Sync.Schedule != "@every 30s" {
		t.Errorf("expected @every 30s, got %q", cfg.Sync.Schedule)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate_Invalid(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown prefer", func(c *Config) { c.Store.Prefer = "indexeddb" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }},
		{"unknown flat kind", func(c *Config) { c.Store.FlatKind = "localstorage" }},
		{"unknown log mode", func(c *Config) { c.Log.Mode = "verbose" }},
		{"zero remote timeout", func(c *Config) { c.Remote.RequestTimeout = 0 }},
		{"zero outbox attempts", func(c *Config) { c.Sync.OutboxMaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) failed: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})
}
