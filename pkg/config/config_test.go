package config

import (
	"os"
	"strings"
	"testing"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"MONGO_COLLECTION", "NOTE_WORKERS", "LISTEN_ADDR", "SNAPSHOT_PATH"} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MongoCollection != "session_history" {
		t.Errorf("MongoCollection = %q", cfg.MongoCollection)
	}
	if cfg.Workers != 4 || cfg.ListenAddr != ":8080" {
		t.Errorf("unexpected defaults: workers=%d addr=%q", cfg.Workers, cfg.ListenAddr)
	}
	if cfg.SnapshotsDisabled() {
		t.Error("snapshots should be enabled by default")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon")
	t.Setenv("DATABASE_URL", "postgres://localhost/companion")
	t.Setenv("NOTE_WORKERS", "8")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("GROQ_API_KEY", "gsk")
	t.Setenv("SNAPSHOT_PATH", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.UsesDirectDB() || !cfg.SummariesEnabled() || !cfg.SnapshotsDisabled() {
		t.Errorf("unexpected switches: %+v", cfg)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("NOTE_WORKERS", "many")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Errorf("unexpected error: %v", err)
	}
}
