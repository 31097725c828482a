package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"companion-notes/pkg/domain"
	"companion-notes/pkg/keypoints"
	"companion-notes/pkg/worker"
)

// ErrMissingCompanionID is returned when a controller is built without a companion.
var ErrMissingCompanionID = errors.New("companion id is required")

// ErrNoNoteSaver is returned when a controller is built without a persistence sink.
var ErrNoNoteSaver = errors.New("note saver is required")

// Status is the lifecycle state of a voice session.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// NoteSaver persists a batch of notes. Implemented by worker.Manager.
type NoteSaver interface {
	SaveNotes(ctx context.Context, notes []domain.NoteInput) (worker.BatchResult, error)
}

// SnapshotStore keeps the saved normalized points across reconnects.
// Implemented by snapshot.Store.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]string, error)
	Merge(ctx context.Context, key string, points []string) error
}

// HistoryStore archives finished sessions. Implemented by db.Client.
type HistoryStore interface {
	SaveSessionHistory(ctx context.Context, h *domain.SessionHistory) error
}

// Config wires a controller. Notes and CompanionID are required.
type Config struct {
	UserID      string
	CompanionID string
	SessionID   string
	Topic       string
	Subject     string

	// Path is the page showing the companion's notes. Defaults to /companions/{id}.
	Path string

	// DisableAutoSave turns key-point extraction off; transcripts are still recorded.
	DisableAutoSave bool

	Notes     NoteSaver
	Snapshots SnapshotStore
	History   HistoryStore

	// OnRefresh runs after a batch saved at least one note.
	OnRefresh func()
	// OnKeyPointsSaved receives the normalized keys of a saved batch.
	OnKeyPointsSaved func(keys []string)
}

var meetingEndedPattern = regexp.MustCompile(`(?i)meeting has ended`)

// Controller drives one companion voice session: it records final transcript
// fragments, mines assistant fragments for key points and saves them as
// notes in the background.
//
// Extraction runs synchronously under mu, so two fragments of one session
// never race on the seen set. Persistence runs on its own goroutine and
// confirms or rolls back the batch when it settles.
type Controller struct {
	cfg  Config
	ctx  keypoints.Context
	seen *keypoints.SeenSet

	mu         sync.Mutex
	status     Status
	autoSave   bool
	paused     bool
	terminated bool
	transcript []domain.TranscriptFragment
	notesSaved int
	startedAt  time.Time
	endedAt    time.Time
	inflight   sync.WaitGroup
	now        func() time.Time
}

// NewController creates a controller for one companion.
func NewController(cfg Config) (*Controller, error) {
	if strings.TrimSpace(cfg.CompanionID) == "" {
		return nil, ErrMissingCompanionID
	}
	if cfg.Notes == nil {
		return nil, ErrNoNoteSaver
	}
	if cfg.Path == "" {
		cfg.Path = "/companions/" + cfg.CompanionID
	}

	return &Controller{
		cfg:      cfg,
		ctx:      keypoints.Context{Topic: cfg.Topic, Subject: cfg.Subject},
		seen:     keypoints.NewSeenSet(),
		status:   StatusInactive,
		autoSave: !cfg.DisableAutoSave,
		now:      time.Now,
	}, nil
}

// SnapshotKey is the key the seen set is stored under.
func (c *Controller) SnapshotKey() string {
	if c.cfg.UserID == "" {
		return c.cfg.CompanionID
	}
	return c.cfg.UserID + ":" + c.cfg.CompanionID
}

// Connect starts a (new) session. The seen set is cleared and rehydrated
// from the snapshot store when one is configured. A failed load leaves the
// set empty and is returned, the session stays usable.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = StatusActive
	c.paused = false
	c.terminated = false
	c.transcript = nil
	c.notesSaved = 0
	c.startedAt = c.now()
	c.endedAt = time.Time{}
	c.seen.Reset()

	if c.cfg.Snapshots == nil {
		return nil
	}

	keys, err := c.cfg.Snapshots.Load(ctx, c.SnapshotKey())
	if err != nil {
		return fmt.Errorf("rehydrate seen points: %w", err)
	}
	c.seen.Reset(keys...)
	log.Printf("session %s: rehydrated %d saved point(s)", c.cfg.CompanionID, len(keys))
	return nil
}

// HandleMessage processes one transport event. Extraction and persistence
// errors never propagate to the caller.
func (c *Controller) HandleMessage(ctx context.Context, msg domain.TranscriptMessage) {
	switch msg.Type {
	case domain.MessageTypeCallStart:
		c.mu.Lock()
		restart := c.terminated
		c.status = StatusActive
		c.mu.Unlock()

		// A call started after a paused termination is a new session.
		if restart {
			c.Wait()
			if err := c.Connect(ctx); err != nil {
				log.Printf("session %s: %v", c.cfg.CompanionID, err)
			}
		}
	case domain.MessageTypeCallEnd:
		if _, err := c.End(ctx); err != nil {
			log.Printf("session %s: save session history failed: %v", c.cfg.CompanionID, err)
		}
	case domain.MessageTypeError:
		c.handleError(ctx, msg.Error)
	case domain.MessageTypeTranscript:
		if msg.IsFinalTranscript() {
			c.handleTranscript(ctx, msg.Role, msg.Transcript)
		}
	}
}

func (c *Controller) handleTranscript(ctx context.Context, role domain.Role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fragment := domain.TranscriptFragment{Role: role, Text: text, Index: len(c.transcript)}
	c.transcript = append(c.transcript, fragment)

	if !c.autoSave || c.terminated || role != domain.RoleAssistant {
		return
	}

	fragment.Text = strings.TrimSpace(text)
	batch := keypoints.Extract(fragment, c.seen, c.ctx)
	if batch.Empty() {
		return
	}

	// Saves outlive the event that triggered them.
	c.inflight.Add(1)
	go c.persist(context.WithoutCancel(ctx), batch)
}

// persist saves a batch and settles its reservations: any success confirms
// the whole batch, total failure releases every key for a later retry.
func (c *Controller) persist(ctx context.Context, batch keypoints.Batch) {
	defer c.inflight.Done()

	inputs := make([]domain.NoteInput, 0, len(batch.Points))
	for _, p := range batch.Points {
		inputs = append(inputs, domain.NoteInput{
			UserID:      c.cfg.UserID,
			CompanionID: c.cfg.CompanionID,
			SessionID:   c.cfg.SessionID,
			Content:     p,
			Path:        c.cfg.Path,
		})
	}

	res, err := c.cfg.Notes.SaveNotes(ctx, inputs)
	if err != nil {
		c.seen.Rollback(batch)
		log.Printf("session %s: auto-save key points failed, %d point(s) released: %v", c.cfg.CompanionID, len(batch.Keys), err)
		return
	}

	c.seen.Confirm(batch)
	c.mu.Lock()
	c.notesSaved += res.Succeeded
	c.mu.Unlock()
	log.Printf("session %s: auto-saved %d key point(s)", c.cfg.CompanionID, res.Succeeded)

	if c.cfg.Snapshots != nil {
		if err := c.cfg.Snapshots.Merge(ctx, c.SnapshotKey(), batch.Keys); err != nil {
			log.Printf("session %s: snapshot merge failed: %v", c.cfg.CompanionID, err)
		}
	}
	if c.cfg.OnKeyPointsSaved != nil {
		c.cfg.OnKeyPointsSaved(append([]string(nil), batch.Keys...))
	}
	if c.cfg.OnRefresh != nil {
		c.cfg.OnRefresh()
	}
}

// handleError ends the session when the transport reports the meeting is
// over, unless the user paused it.
func (c *Controller) handleError(ctx context.Context, e *domain.TransportError) {
	if e == nil {
		return
	}
	ended := meetingEndedPattern.MatchString(e.Message) || strings.EqualFold(e.Type, "ejected")
	if !ended {
		log.Printf("session %s: transport error: %s %s", c.cfg.CompanionID, e.Type, e.Message)
		return
	}

	c.mu.Lock()
	paused := c.paused
	c.mu.Unlock()
	if paused {
		log.Printf("session %s: ignoring meeting end while paused", c.cfg.CompanionID)
		return
	}

	if _, err := c.End(ctx); err != nil {
		log.Printf("session %s: save session history failed: %v", c.cfg.CompanionID, err)
	}
}

// End terminates the session once. It waits for in-flight saves, then
// archives the session history unless the session was paused by the user.
// It reports whether this call performed the termination.
func (c *Controller) End(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return false, nil
	}
	c.terminated = true
	c.endedAt = c.now()
	paused := c.paused
	if !paused {
		c.status = StatusFinished
	}
	c.mu.Unlock()

	c.Wait()

	if paused || c.cfg.History == nil {
		return true, nil
	}

	h := c.History()
	if err := c.cfg.History.SaveSessionHistory(ctx, &h); err != nil {
		return true, fmt.Errorf("save session history: %w", err)
	}
	log.Printf("session %s: saved session history (%d fragments, %d notes)", c.cfg.CompanionID, len(h.Transcript), h.NotesSaved)
	return true, nil
}

// History builds the archive record for the current session.
func (c *Controller) History() domain.SessionHistory {
	c.mu.Lock()
	defer c.mu.Unlock()

	ended := c.endedAt
	if ended.IsZero() {
		ended = c.now()
	}

	return domain.SessionHistory{
		SessionID:   c.sessionIDLocked(),
		UserID:      c.cfg.UserID,
		CompanionID: c.cfg.CompanionID,
		Topic:       c.cfg.Topic,
		Subject:     c.cfg.Subject,
		Transcript:  append([]domain.TranscriptFragment(nil), c.transcript...),
		NotesSaved:  c.notesSaved,
		StartedAt:   c.startedAt,
		EndedAt:     ended,
	}
}

func (c *Controller) sessionIDLocked() string {
	if c.cfg.SessionID != "" {
		return c.cfg.SessionID
	}
	return fmt.Sprintf("%s-%d", c.SnapshotKey(), c.startedAt.UnixNano())
}

// Pause marks the session as paused by the user; a later call end is not archived.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume clears the pause flag.
func (c *Controller) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// SetAutoSave toggles key-point extraction.
func (c *Controller) SetAutoSave(on bool) {
	c.mu.Lock()
	c.autoSave = on
	c.mu.Unlock()
}

// AutoSave reports whether key-point extraction is on.
func (c *Controller) AutoSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoSave
}

// Status returns the session state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Transcript returns a copy of the recorded fragments.
func (c *Controller) Transcript() []domain.TranscriptFragment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.TranscriptFragment(nil), c.transcript...)
}

// SeenKeys returns the confirmed normalized points.
func (c *Controller) SeenKeys() []string {
	return c.seen.Keys()
}

// Wait blocks until every in-flight save has settled.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
