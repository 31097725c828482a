package db

import (
	"context"
	"fmt"
	"log"

	"companion-notes/pkg/domain"
)

// Repository is the notes and summaries store. SQLRepository and
// RESTRepository both implement it.
type Repository interface {
	InsertNote(ctx context.Context, n domain.Note) (domain.Note, error)
	ListNotes(ctx context.Context, userID, companionID string) ([]domain.Note, error)
	DeleteNote(ctx context.Context, userID, noteID string) (bool, error)

	InsertSummary(ctx context.Context, s domain.Summary) (domain.Summary, error)
	ListSummaries(ctx context.Context, userID, companionID string) ([]domain.Summary, error)
	UpdateSummary(ctx context.Context, s domain.Summary) error
	DeleteSummaries(ctx context.Context, userID string, ids []string) (int, error)
}

var (
	_ Repository = (*SQLRepository)(nil)
	_ Repository = (*RESTRepository)(nil)
)

// OpenRepository connects to Supabase and picks the repository matching the
// available access: direct SQL when a connection could be made, PostgREST
// otherwise. The returned client must be closed by the caller.
func OpenRepository(ctx context.Context, cfg SupabaseConfig) (Repository, *SupabaseClient, error) {
	client := NewSupabaseClient(cfg)
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect supabase: %w", err)
	}

	if client.HasDirectDB() {
		repo := NewSQLRepository(client)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.Printf("db: notes store using direct SQL")
		return repo, client, nil
	}

	log.Printf("db: notes store using REST API")
	return NewRESTRepository(client.SDK()), client, nil
}
