package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrEmptyKey is returned for operations without a session key.
var ErrEmptyKey = errors.New("snapshot key is empty")

// Store keeps the normalized points already saved per companion session, so
// a reconnecting session does not recreate notes it saved before.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default snapshot database path.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "companion-notes", "seen-points.sqlite")
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	// Single writer avoids SQLITE_BUSY between the controller and save callbacks.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS seen_points (
  session_key TEXT NOT NULL,
  point TEXT NOT NULL,
  saved_at INTEGER NOT NULL DEFAULT (unixepoch()),
  PRIMARY KEY (session_key, point)
);`

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create seen_points table: %w", err)
	}
	return nil
}

// Load returns the normalized points stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]string, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	rows, err := s.db.QueryContext(ctx, `SELECT point FROM seen_points WHERE session_key = ? ORDER BY point`, key)
	if err != nil {
		return nil, fmt.Errorf("query seen points: %w", err)
	}
	defer rows.Close()

	var points []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan seen point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return points, nil
}

// Merge adds points under key. Existing points are kept (union).
func (s *Store) Merge(ctx context.Context, key string, points []string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen_points (session_key, point) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if p == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, key, p); err != nil {
			return fmt.Errorf("insert seen point %q: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear removes every point stored under key.
func (s *Store) Clear(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM seen_points WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("clear seen points: %w", err)
	}
	return nil
}
