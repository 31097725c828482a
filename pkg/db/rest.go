package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"companion-notes/pkg/domain"

	supabase "github.com/supabase-community/supabase-go"
)

const (
	notesTable     = "notes"
	summariesTable = "summaries"
)

// RESTRepository stores notes and summaries through the Supabase PostgREST
// API. It is used when only the project URL and key are configured.
//
// The SDK calls take no context; ctx is checked before each request only.
type RESTRepository struct {
	sdk *supabase.Client
}

// NewRESTRepository creates a repository over an initialized SDK client.
func NewRESTRepository(sdk *supabase.Client) *RESTRepository {
	return &RESTRepository{sdk: sdk}
}

type noteRow struct {
	UserID      string  `json:"user_id"`
	CompanionID string  `json:"companion_id"`
	SessionID   *string `json:"session_id,omitempty"`
	Content     string  `json:"content"`
}

type summaryInsertRow struct {
	UserID      string          `json:"user_id"`
	CompanionID string          `json:"companion_id"`
	SessionID   *string         `json:"session_id,omitempty"`
	Title       *string         `json:"title"`
	Points      json.RawMessage `json:"points"`
}

type summaryRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CompanionID string          `json:"companion_id"`
	SessionID   *string         `json:"session_id,omitempty"`
	Title       *string         `json:"title"`
	Points      json.RawMessage `json:"points"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at"`
}

func (r *RESTRepository) ready(ctx context.Context) error {
	if r.sdk == nil {
		return ErrNotConnected
	}
	return ctx.Err()
}

// InsertNote stores a note and returns the stored representation.
func (r *RESTRepository) InsertNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	if err := r.ready(ctx); err != nil {
		return domain.Note{}, err
	}

	row := noteRow{UserID: n.UserID, CompanionID: n.CompanionID, SessionID: n.SessionID, Content: n.Content}

	var inserted []domain.Note
	if _, err := r.sdk.From(notesTable).Insert(row, false, "", "representation", "").ExecuteTo(&inserted); err != nil {
		return domain.Note{}, fmt.Errorf("insert note: %w", err)
	}
	if len(inserted) == 0 {
		return n, nil
	}
	return inserted[0], nil
}

// ListNotes returns the user's notes for a companion, newest first.
func (r *RESTRepository) ListNotes(ctx context.Context, userID, companionID string) ([]domain.Note, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}

	var notes []domain.Note
	_, err := r.sdk.From(notesTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("companion_id", companionID).
		Order("created_at", nil).
		ExecuteTo(&notes)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}

	// PostgREST orders already; keep the guarantee if a proxy reorders.
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

// DeleteNote removes a note owned by userID. It reports whether a row was deleted.
func (r *RESTRepository) DeleteNote(ctx context.Context, userID, noteID string) (bool, error) {
	if err := r.ready(ctx); err != nil {
		return false, err
	}

	var deleted []domain.Note
	_, err := r.sdk.From(notesTable).
		Delete("representation", "").
		Eq("id", noteID).
		Eq("user_id", userID).
		ExecuteTo(&deleted)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	return len(deleted) > 0, nil
}

// InsertSummary stores a summary and returns the stored representation.
func (r *RESTRepository) InsertSummary(ctx context.Context, s domain.Summary) (domain.Summary, error) {
	if err := r.ready(ctx); err != nil {
		return domain.Summary{}, err
	}

	points, err := json.Marshal(nonNilPoints(s.Points))
	if err != nil {
		return domain.Summary{}, fmt.Errorf("marshal points: %w", err)
	}
	row := summaryInsertRow{UserID: s.UserID, CompanionID: s.CompanionID, SessionID: s.SessionID, Title: s.Title, Points: points}

	var inserted []summaryRow
	if _, err := r.sdk.From(summariesTable).Insert(row, false, "", "representation", "").ExecuteTo(&inserted); err != nil {
		return domain.Summary{}, fmt.Errorf("insert summary: %w", err)
	}
	if len(inserted) == 0 {
		return s, nil
	}
	return inserted[0].toDomain(), nil
}

// ListSummaries returns the user's summaries for a companion, newest first.
func (r *RESTRepository) ListSummaries(ctx context.Context, userID, companionID string) ([]domain.Summary, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}

	var rows []summaryRow
	_, err := r.sdk.From(summariesTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("companion_id", companionID).
		Order("created_at", nil).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}

	summaries := make([]domain.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, row.toDomain())
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// UpdateSummary replaces title and points of a summary owned by the user.
func (r *RESTRepository) UpdateSummary(ctx context.Context, s domain.Summary) error {
	if err := r.ready(ctx); err != nil {
		return err
	}

	points, err := json.Marshal(nonNilPoints(s.Points))
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}
	now := time.Now().UTC()
	patch := map[string]interface{}{
		"title":      s.Title,
		"points":     json.RawMessage(points),
		"updated_at": now,
	}

	var updated []summaryRow
	_, err = r.sdk.From(summariesTable).
		Update(patch, "representation", "").
		Eq("id", s.ID).
		Eq("user_id", s.UserID).
		ExecuteTo(&updated)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSummaries removes the given summaries owned by userID and returns how many went.
func (r *RESTRepository) DeleteSummaries(ctx context.Context, userID string, ids []string) (int, error) {
	if err := r.ready(ctx); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted []summaryRow
	_, err := r.sdk.From(summariesTable).
		Delete("representation", "").
		Eq("user_id", userID).
		In("id", ids).
		ExecuteTo(&deleted)
	if err != nil {
		return 0, fmt.Errorf("delete summaries: %w", err)
	}
	return len(deleted), nil
}

func (row summaryRow) toDomain() domain.Summary {
	return domain.Summary{
		ID:          row.ID,
		UserID:      row.UserID,
		CompanionID: row.CompanionID,
		SessionID:   row.SessionID,
		Title:       row.Title,
		Points:      DecodePoints(row.Points),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
