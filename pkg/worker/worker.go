package worker

import (
	"context"
	"errors"
	"fmt"

	"companion-notes/pkg/domain"
)

// ErrNoteRejected is returned when the store answers without success.
var ErrNoteRejected = errors.New("note rejected")

// NoteCreator persists a single note and reports {success, error}.
type NoteCreator interface {
	AddNote(ctx context.Context, in domain.NoteInput) (domain.ActionResult, error)
}

// Worker saves notes one at a time
type Worker struct {
	creator NoteCreator
}

// NewWorker creates a new worker
func NewWorker(creator NoteCreator) *Worker {
	return &Worker{
		creator: creator,
	}
}

// ProcessNote saves one note. Anything other than a successful result is an error.
func (w *Worker) ProcessNote(ctx context.Context, note domain.NoteInput) error {
	res, err := w.creator.AddNote(ctx, note)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}

	if !res.Success {
		if res.Error == "" {
			return ErrNoteRejected
		}
		return fmt.Errorf("%w: %s", ErrNoteRejected, res.Error)
	}

	return nil
}
