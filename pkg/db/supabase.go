package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	supabase "github.com/supabase-community/supabase-go"
)

var (
	errNoSupabaseAccess = errors.New("supabase needs a connection string, a database password or URL and key")
	errBadProjectURL    = errors.New("supabase URL must look like https://<project-ref>.supabase.co")
)

// SupabaseConfig selects how the notes project is reached.
//
// ConnectionString or SupabaseURL plus Password open a direct Postgres
// connection. SupabaseURL plus SupabaseKey enable the REST API, which is
// also the fallback when the direct connection cannot be made.
type SupabaseConfig struct {
	ConnectionString string
	SupabaseURL      string
	SupabaseKey      string // service role key on the server
	Password         string // database password, not the API key

	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

// SupabaseClient holds whichever access the config allows: a pgx-backed
// sql.DB, the PostgREST SDK, or both.
type SupabaseClient struct {
	db  *sql.DB
	sdk *supabase.Client
	cfg SupabaseConfig
}

// NewSupabaseClient constructs a Supabase client. Call Connect before use.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect sets up the SDK when URL and key are present and then tries the
// direct connection. A failed direct connection is an error only when there
// is no SDK to fall back to.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.SupabaseURL != "" && c.cfg.SupabaseKey != "" {
		sdk, err := supabase.NewClient(c.cfg.SupabaseURL, c.cfg.SupabaseKey, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.sdk = sdk
	}

	dsn, err := c.dsn()
	if err == nil && dsn != "" {
		err = c.openDirect(ctx, dsn)
	}
	if err != nil {
		if c.sdk == nil {
			return err
		}
		log.Printf("db: direct supabase connection unavailable, using REST API: %v", err)
	}

	if c.db == nil && c.sdk == nil {
		return errNoSupabaseAccess
	}
	return nil
}

func (c *SupabaseClient) openDirect(ctx context.Context, dsn string) error {
	db, err := openPostgres(ctx, dsn, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns, c.cfg.ConnMaxIdle, c.cfg.ConnMaxLife)
	if err != nil {
		return fmt.Errorf("supabase: %w", err)
	}
	c.db = db
	return nil
}

// dsn returns the direct connection string, or "" when the config only
// allows REST access.
func (c *SupabaseClient) dsn() (string, error) {
	dsn := c.cfg.ConnectionString
	if dsn == "" {
		if c.cfg.Password == "" {
			return "", nil
		}
		ref, err := projectRef(c.cfg.SupabaseURL)
		if err != nil {
			return "", err
		}
		dsn = fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
			url.QueryEscape(c.cfg.Password), ref)
	}

	// Notes of one batch are inserted in parallel; pgx must not share
	// prepared statements across those connections.
	dsn = withParam(dsn, "statement_cache_capacity", "0")
	dsn = withParam(dsn, "default_query_exec_mode", "simple_protocol")
	return dsn, nil
}

// projectRef extracts "abcd1234" from https://abcd1234.supabase.co.
func projectRef(projectURL string) (string, error) {
	if projectURL == "" {
		return "", errBadProjectURL
	}
	u, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}
	parts := strings.Split(u.Host, ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", errBadProjectURL
	}
	return parts[0], nil
}

// withParam appends key=value unless the connection string already sets key.
func withParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}

// Close closes the direct connection, if any.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB returns the direct handle, nil in REST-only mode.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// HasDirectDB reports whether SQL access is available.
func (c *SupabaseClient) HasDirectDB() bool {
	return c.db != nil
}

// SDK returns the PostgREST client, nil without URL and key.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.sdk
}
