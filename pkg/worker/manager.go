package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"companion-notes/pkg/domain"
)

// ErrAllFailed is returned when not a single note of a batch was saved.
var ErrAllFailed = errors.New("all notes failed to save")

// BatchResult counts the outcome of one SaveNotes call.
type BatchResult struct {
	Succeeded int
	Failed    int
}

// Manager fans a batch of notes out to workers and counts the outcome
type Manager struct {
	workerCount int
	creator     NoteCreator
}

// NewManager creates a new manager. workerCount <= 0 is coerced to 1.
func NewManager(workerCount int, creator NoteCreator) *Manager {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Manager{
		workerCount: workerCount,
		creator:     creator,
	}
}

// SaveNotes saves every note independently. Failures are counted and logged,
// never retried. It returns ErrAllFailed only when no note was saved, so a
// partially successful batch is reported as success.
func (m *Manager) SaveNotes(ctx context.Context, notes []domain.NoteInput) (BatchResult, error) {
	if len(notes) == 0 {
		return BatchResult{}, nil
	}

	// Create job channel
	jobChan := make(chan domain.NoteInput, len(notes))
	for _, note := range notes {
		jobChan <- note
	}
	close(jobChan)

	workers := m.workerCount
	if workers > len(notes) {
		workers = len(notes)
	}

	var wg sync.WaitGroup

	// Results channel to collect success/error from workers (no contention)
	type result struct {
		success  bool
		content  string
		workerID int
		err      error
	}
	resultsChan := make(chan result, len(notes))

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			w := NewWorker(m.creator)

			for note := range jobChan {
				err := w.ProcessNote(ctx, note)

				resultsChan <- result{
					success:  err == nil,
					content:  note.Content,
					workerID: workerID,
					err:      err,
				}
			}
		}(i)
	}

	// Close results channel when all workers finish
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Aggregate results (single goroutine reads from channel)
	var res BatchResult
	for r := range resultsChan {
		if r.success {
			res.Succeeded++
			continue
		}
		res.Failed++
		log.Printf("Worker %d: Error saving note %q: %v", r.workerID, truncate(r.content, 60), r.err)
	}

	if res.Failed > 0 && res.Succeeded == 0 {
		return res, fmt.Errorf("%w (%d)", ErrAllFailed, res.Failed)
	}

	return res, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
