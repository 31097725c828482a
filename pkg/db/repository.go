package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"companion-notes/pkg/domain"
)

// SQLRepository stores notes and summaries in Postgres (plain or Supabase)
// through any DBProvider.
type SQLRepository struct {
	pg DBProvider
}

// NewSQLRepository creates a repository over the given connection.
func NewSQLRepository(pg DBProvider) *SQLRepository {
	return &SQLRepository{pg: pg}
}

func (r *SQLRepository) db() (*sql.DB, error) {
	if r.pg == nil || r.pg.DB() == nil {
		return nil, ErrNotConnected
	}
	return r.pg.DB(), nil
}

// EnsureSchema creates the notes and summaries tables when missing.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	db, err := r.db()
	if err != nil {
		return err
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS notes (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  user_id TEXT NOT NULL,
  companion_id TEXT NOT NULL,
  session_id TEXT,
  content TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS notes_user_companion_idx ON notes (user_id, companion_id, created_at DESC);

CREATE TABLE IF NOT EXISTS summaries (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  user_id TEXT NOT NULL,
  companion_id TEXT NOT NULL,
  session_id TEXT,
  title TEXT,
  points JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS summaries_user_companion_idx ON summaries (user_id, companion_id, created_at DESC);`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create notes/summaries tables: %w", err)
	}
	return nil
}

// InsertNote stores a note and returns it with its generated id and timestamp.
func (r *SQLRepository) InsertNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	db, err := r.db()
	if err != nil {
		return domain.Note{}, err
	}

	const q = `
INSERT INTO notes (user_id, companion_id, session_id, content)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	if err := db.QueryRowContext(ctx, q, n.UserID, n.CompanionID, n.SessionID, n.Content).Scan(&n.ID, &n.CreatedAt); err != nil {
		return domain.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

// ListNotes returns the user's notes for a companion, newest first.
func (r *SQLRepository) ListNotes(ctx context.Context, userID, companionID string) ([]domain.Note, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}

	const q = `
SELECT id, user_id, companion_id, session_id, content, created_at, updated_at
FROM notes
WHERE user_id = $1 AND companion_id = $2
ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, q, userID, companionID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var (
			n         domain.Note
			sessionID sql.NullString
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.CompanionID, &sessionID, &n.Content, &n.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.SessionID = nullString(sessionID)
		n.UpdatedAt = nullTime(updatedAt)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return notes, nil
}

// DeleteNote removes a note owned by userID. It reports whether a row was deleted.
func (r *SQLRepository) DeleteNote(ctx context.Context, userID, noteID string) (bool, error) {
	db, err := r.db()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// InsertSummary stores a summary; points are kept as a JSON array.
func (r *SQLRepository) InsertSummary(ctx context.Context, s domain.Summary) (domain.Summary, error) {
	db, err := r.db()
	if err != nil {
		return domain.Summary{}, err
	}

	points, err := json.Marshal(nonNilPoints(s.Points))
	if err != nil {
		return domain.Summary{}, fmt.Errorf("marshal points: %w", err)
	}

	const q = `
INSERT INTO summaries (user_id, companion_id, session_id, title, points)
VALUES ($1, $2, $3, $4, $5::jsonb)
RETURNING id, created_at`

	if err := db.QueryRowContext(ctx, q, s.UserID, s.CompanionID, s.SessionID, s.Title, string(points)).Scan(&s.ID, &s.CreatedAt); err != nil {
		return domain.Summary{}, fmt.Errorf("insert summary: %w", err)
	}
	return s, nil
}

// ListSummaries returns the user's summaries for a companion, newest first.
func (r *SQLRepository) ListSummaries(ctx context.Context, userID, companionID string) ([]domain.Summary, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}

	const q = `
SELECT id, user_id, companion_id, session_id, title, points, created_at, updated_at
FROM summaries
WHERE user_id = $1 AND companion_id = $2
ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, q, userID, companionID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var (
			s         domain.Summary
			sessionID sql.NullString
			title     sql.NullString
			points    []byte
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.CompanionID, &sessionID, &title, &points, &s.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.SessionID = nullString(sessionID)
		s.Title = nullString(title)
		s.UpdatedAt = nullTime(updatedAt)
		s.Points = DecodePoints(points)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return summaries, nil
}

// UpdateSummary replaces title and points of a summary owned by the user.
func (r *SQLRepository) UpdateSummary(ctx context.Context, s domain.Summary) error {
	db, err := r.db()
	if err != nil {
		return err
	}

	points, err := json.Marshal(nonNilPoints(s.Points))
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}

	const q = `
UPDATE summaries SET title = $1, points = $2::jsonb, updated_at = now()
WHERE id = $3 AND user_id = $4`

	res, err := db.ExecContext(ctx, q, s.Title, string(points), s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSummaries removes the given summaries owned by userID and returns how many went.
func (r *SQLRepository) DeleteSummaries(ctx context.Context, userID string, ids []string) (int, error) {
	db, err := r.db()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	query, args := buildIDInQuery(`DELETE FROM summaries WHERE user_id = $1 AND id IN (`, userID, ids)
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete summaries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// buildIDInQuery appends one placeholder per id after the owner argument.
func buildIDInQuery(prefix, owner string, ids []string) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(prefix)

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, owner)
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+2)
		args = append(args, id)
	}
	b.WriteString(")")
	return b.String(), args
}

// DecodePoints reads a stored points column. Anything but a JSON array of
// strings yields an empty list.
func DecodePoints(raw []byte) []string {
	var points []string
	if err := json.Unmarshal(raw, &points); err != nil || points == nil {
		return []string{}
	}
	return points
}

func nonNilPoints(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
