// Package config reads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is shared by the CLI and the live server. Command-line flags in the
// mains override the values loaded here.
type Config struct {
	// Supabase project used for notes and summaries. With only URL and key
	// the stores run over the REST API; DatabaseURL or SupabasePassword
	// switches them to a direct Postgres connection.
	SupabaseURL      string `env:"SUPABASE_URL"`
	SupabaseKey      string `env:"SUPABASE_KEY"`
	SupabasePassword string `env:"SUPABASE_DB_PASSWORD"`
	DatabaseURL      string `env:"DATABASE_URL"`

	// Session history archive. Empty MongoURI disables archiving.
	MongoURI        string `env:"MONGO_URI"`
	MongoDB         string `env:"MONGO_DB" envDefault:"companion"`
	MongoCollection string `env:"MONGO_COLLECTION" envDefault:"session_history"`

	// SnapshotPath is the SQLite file holding seen key points per session.
	// "off" disables snapshots.
	SnapshotPath string `env:"SNAPSHOT_PATH"`

	GroqAPIKey  string `env:"GROQ_API_KEY"`
	GroqBaseURL string `env:"GROQ_BASE_URL"`
	GroqModel   string `env:"GROQ_MODEL"`

	Workers        int      `env:"NOTE_WORKERS" envDefault:"4"`
	ListenAddr     string   `env:"LISTEN_ADDR" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// UsesDirectDB reports whether the notes stores should use SQL rather than
// the REST API.
func (c Config) UsesDirectDB() bool {
	return c.DatabaseURL != "" || c.SupabasePassword != ""
}

// SummariesEnabled reports whether an LLM key is configured.
func (c Config) SummariesEnabled() bool {
	return c.GroqAPIKey != ""
}

// SnapshotsDisabled reports whether seen-point snapshots are turned off.
func (c Config) SnapshotsDisabled() bool {
	return c.SnapshotPath == "off"
}
