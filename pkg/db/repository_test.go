package db

import (
	"context"
	"os"
	"testing"

	"companion-notes/pkg/domain"
)

func TestDecodePoints(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"array", `["a","b","c"]`, 3},
		{"empty array", `[]`, 0},
		{"null", `null`, 0},
		{"object", `{"a":1}`, 0},
		{"garbage", `not json`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodePoints([]byte(tt.raw))
			if got == nil {
				t.Fatal("DecodePoints must never return nil")
			}
			if len(got) != tt.want {
				t.Errorf("DecodePoints(%s) = %v, want %d points", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBuildIDInQuery(t *testing.T) {
	query, args := buildIDInQuery(`DELETE FROM summaries WHERE user_id = $1 AND id IN (`, "u", []string{"a", "b"})

	want := `DELETE FROM summaries WHERE user_id = $1 AND id IN ($2, $3)`
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 3 || args[0] != "u" || args[2] != "b" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestSQLRepository_NotConnected(t *testing.T) {
	repo := NewSQLRepository(NewPostgresClient(PostgresConfig{}))
	if _, err := repo.InsertNote(context.Background(), domain.Note{}); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestIntegration_SQLRepository_NotesAndSummaries(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pg := NewPostgresClient(PostgresConfig{DSN: dsn})
	if err := pg.Connect(ctx); err != nil {
		t.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pg.Close()

	repo := NewSQLRepository(pg)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	first, err := repo.InsertNote(ctx, domain.Note{UserID: "it-user", CompanionID: "it-companion", Content: "first"})
	if err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}
	defer repo.DeleteNote(ctx, "it-user", first.ID)

	second, err := repo.InsertNote(ctx, domain.Note{UserID: "it-user", CompanionID: "it-companion", Content: "second"})
	if err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}
	defer repo.DeleteNote(ctx, "it-user", second.ID)

	notes, err := repo.ListNotes(ctx, "it-user", "it-companion")
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(notes) < 2 || notes[0].ID != second.ID {
		t.Errorf("expected newest note first, got %+v", notes)
	}

	if ok, _ := repo.DeleteNote(ctx, "intruder", first.ID); ok {
		t.Error("note deleted by a user who does not own it")
	}

	title := "Photosynthesis"
	s, err := repo.InsertSummary(ctx, domain.Summary{UserID: "it-user", CompanionID: "it-companion", Title: &title, Points: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("InsertSummary failed: %v", err)
	}
	summaries, err := repo.ListSummaries(ctx, "it-user", "it-companion")
	if err != nil {
		t.Fatalf("ListSummaries failed: %v", err)
	}
	if len(summaries) == 0 || len(summaries[0].Points) != 2 {
		t.Errorf("unexpected summaries: %+v", summaries)
	}

	n, err := repo.DeleteSummaries(ctx, "it-user", []string{s.ID})
	if err != nil || n != 1 {
		t.Errorf("DeleteSummaries = %d, %v; want 1, nil", n, err)
	}
}
