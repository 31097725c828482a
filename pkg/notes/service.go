package notes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"companion-notes/pkg/domain"
)

var (
	ErrUnauthorized       = errors.New("unauthorized - please sign in")
	ErrMissingCompanionID = errors.New("missing companion id")
	ErrEmptyContent       = errors.New("note content cannot be empty")
	ErrMissingNoteID      = errors.New("missing note id")
)

// Repository persists notes. Implemented by db.SQLRepository and db.RESTRepository.
type Repository interface {
	InsertNote(ctx context.Context, n domain.Note) (domain.Note, error)
	ListNotes(ctx context.Context, userID, companionID string) ([]domain.Note, error)
	DeleteNote(ctx context.Context, userID, noteID string) (bool, error)
}

// RefreshFunc is told which page shows the changed notes.
type RefreshFunc func(path string)

// Service validates note requests and writes them to the repository
type Service struct {
	repo    Repository
	refresh RefreshFunc
}

// NewService creates a note service. refresh may be nil.
func NewService(repo Repository, refresh RefreshFunc) *Service {
	return &Service{repo: repo, refresh: refresh}
}

// AddNote validates and stores a note.
//
// Validation failures return a failed result and a nil error. A store failure
// returns a failed result together with the wrapped error.
func (s *Service) AddNote(ctx context.Context, in domain.NoteInput) (domain.ActionResult, error) {
	companionID := strings.TrimSpace(in.CompanionID)
	content := strings.TrimSpace(in.Content)
	if err := validate(in.UserID, companionID, content); err != nil {
		return domain.Failed(err.Error()), nil
	}

	note := domain.Note{
		UserID:      in.UserID,
		CompanionID: companionID,
		Content:     content,
	}
	if in.SessionID != "" {
		sid := in.SessionID
		note.SessionID = &sid
	}

	if _, err := s.repo.InsertNote(ctx, note); err != nil {
		log.Printf("notes: add note for companion %s failed: %v", companionID, err)
		return domain.Failed(err.Error()), fmt.Errorf("add note: %w", err)
	}

	s.notify(in.Path)
	return domain.Succeeded, nil
}

// ListNotes returns the user's notes for a companion, newest first.
// An unknown user gets an empty list.
func (s *Service) ListNotes(ctx context.Context, userID, companionID string) ([]domain.Note, error) {
	if userID == "" {
		return []domain.Note{}, nil
	}

	notes, err := s.repo.ListNotes(ctx, userID, companionID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}

// DeleteNote removes a note owned by the user. Deleting a note that does
// not exist or belongs to someone else is not an error.
func (s *Service) DeleteNote(ctx context.Context, userID, noteID, path string) (domain.ActionResult, error) {
	if userID == "" {
		return domain.Failed(ErrUnauthorized.Error()), nil
	}
	if strings.TrimSpace(noteID) == "" {
		return domain.Failed(ErrMissingNoteID.Error()), nil
	}

	if _, err := s.repo.DeleteNote(ctx, userID, noteID); err != nil {
		log.Printf("notes: delete note %s failed: %v", noteID, err)
		return domain.Failed(err.Error()), fmt.Errorf("delete note: %w", err)
	}

	s.notify(path)
	return domain.Succeeded, nil
}

// validate checks a note request in the order the rejections are reported.
func validate(userID, companionID, content string) error {
	switch {
	case strings.TrimSpace(userID) == "":
		return ErrUnauthorized
	case companionID == "":
		return ErrMissingCompanionID
	case content == "":
		return ErrEmptyContent
	}
	return nil
}

func (s *Service) notify(path string) {
	if s.refresh == nil {
		return
	}
	if path == "" {
		path = "/"
	}
	s.refresh(path)
}
