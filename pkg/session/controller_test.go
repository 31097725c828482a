package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"companion-notes/pkg/domain"
	"companion-notes/pkg/keypoints"
	"companion-notes/pkg/worker"
)

const photosynthesis = "Remember that photosynthesis converts light energy into chemical energy stored in glucose."

const calculusList = "- The derivative measures instantaneous rate of change of a function with respect to a variable.\n" +
	"- Integration is the reverse process of differentiation and computes accumulated area."

// switchCreator fails every note while failing is set
type switchCreator struct {
	mu      sync.Mutex
	failing bool
	saved   []domain.NoteInput
}

func (c *switchCreator) setFailing(v bool) {
	c.mu.Lock()
	c.failing = v
	c.mu.Unlock()
}

func (c *switchCreator) AddNote(ctx context.Context, in domain.NoteInput) (domain.ActionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failing {
		return domain.ActionResult{}, errors.New("store unavailable")
	}
	c.saved = append(c.saved, in)
	return domain.Succeeded, nil
}

func (c *switchCreator) contents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.saved))
	for _, n := range c.saved {
		out = append(out, n.Content)
	}
	return out
}

type memorySnapshots struct {
	mu      sync.Mutex
	points  map[string][]string
	loadErr error
}

func (m *memorySnapshots) Load(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]string(nil), m.points[key]...), nil
}

func (m *memorySnapshots) Merge(ctx context.Context, key string, points []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.points == nil {
		m.points = map[string][]string{}
	}
	m.points[key] = append(m.points[key], points...)
	return nil
}

type memoryHistory struct {
	mu    sync.Mutex
	saved []domain.SessionHistory
}

func (m *memoryHistory) SaveSessionHistory(ctx context.Context, h *domain.SessionHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *h)
	return nil
}

func newController(t *testing.T, creator worker.NoteCreator, mutate func(*Config)) *Controller {
	t.Helper()

	cfg := Config{
		UserID:      "user-1",
		CompanionID: "comp-1",
		SessionID:   "sess-1",
		Topic:       "calculus",
		Subject:     "maths",
		Notes:       worker.NewManager(2, creator),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return c
}

func final(role domain.Role, text string) domain.TranscriptMessage {
	return domain.TranscriptMessage{
		Type:           domain.MessageTypeTranscript,
		TranscriptType: domain.TranscriptTypeFinal,
		Role:           role,
		Transcript:     text,
	}
}

func TestNewController_Validation(t *testing.T) {
	if _, err := NewController(Config{Notes: worker.NewManager(1, &switchCreator{})}); !errors.Is(err, ErrMissingCompanionID) {
		t.Errorf("expected ErrMissingCompanionID, got %v", err)
	}
	if _, err := NewController(Config{CompanionID: "c"}); !errors.Is(err, ErrNoNoteSaver) {
		t.Errorf("expected ErrNoNoteSaver, got %v", err)
	}
}

func TestController_SavesBulletList(t *testing.T) {
	creator := &switchCreator{}
	var refreshes int32
	var savedKeys []string
	c := newController(t, creator, func(cfg *Config) {
		cfg.OnRefresh = func() { atomic.AddInt32(&refreshes, 1) }
		cfg.OnKeyPointsSaved = func(keys []string) { savedKeys = keys }
	})

	c.HandleMessage(context.Background(), final(domain.RoleAssistant, calculusList))
	c.Wait()

	got := creator.contents()
	if len(got) != 2 {
		t.Fatalf("expected 2 saved notes, got %v", got)
	}
	for _, n := range creator.saved {
		if n.CompanionID != "comp-1" || n.SessionID != "sess-1" || n.Path != "/companions/comp-1" {
			t.Errorf("unexpected note input: %+v", n)
		}
		if !strings.HasSuffix(n.Content, ".") {
			t.Errorf("expected %q to end with a period", n.Content)
		}
	}
	if atomic.LoadInt32(&refreshes) != 1 {
		t.Errorf("expected one refresh, got %d", refreshes)
	}
	if len(savedKeys) != 2 {
		t.Errorf("expected 2 saved keys, got %v", savedKeys)
	}
	if len(c.SeenKeys()) != 2 {
		t.Errorf("expected 2 confirmed keys, got %v", c.SeenKeys())
	}
}

func TestController_IgnoresUserAndPartialTranscripts(t *testing.T) {
	creator := &switchCreator{}
	c := newController(t, creator, nil)

	c.HandleMessage(context.Background(), final(domain.RoleUser, photosynthesis))
	partial := final(domain.RoleAssistant, photosynthesis)
	partial.TranscriptType = domain.TranscriptTypePartial
	c.HandleMessage(context.Background(), partial)
	c.Wait()

	if got := creator.contents(); len(got) != 0 {
		t.Fatalf("expected nothing saved, got %v", got)
	}
	if tr := c.Transcript(); len(tr) != 1 || tr[0].Role != domain.RoleUser {
		t.Errorf("expected only the final user fragment recorded, got %+v", tr)
	}
}

func TestController_DuplicateAcrossFragments(t *testing.T) {
	creator := &switchCreator{}
	c := newController(t, creator, nil)
	ctx := context.Background()

	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()
	c.HandleMessage(ctx, final(domain.RoleAssistant, "Okay. "+photosynthesis))
	c.Wait()

	if got := creator.contents(); len(got) != 1 {
		t.Fatalf("expected the point saved once, got %v", got)
	}
}

func TestController_TotalFailureRollsBack(t *testing.T) {
	creator := &switchCreator{failing: true}
	var refreshes int32
	c := newController(t, creator, func(cfg *Config) {
		cfg.OnRefresh = func() { atomic.AddInt32(&refreshes, 1) }
	})
	ctx := context.Background()

	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()

	if keys := c.SeenKeys(); len(keys) != 0 {
		t.Fatalf("expected keys rolled back, got %v", keys)
	}
	if atomic.LoadInt32(&refreshes) != 0 {
		t.Error("refresh must not run when nothing was saved")
	}

	creator.setFailing(false)
	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()

	if got := creator.contents(); len(got) != 1 {
		t.Fatalf("expected retry to save the point, got %v", got)
	}
	want := keypoints.Normalize(photosynthesis)
	if keys := c.SeenKeys(); len(keys) != 1 || keys[0] != want {
		t.Errorf("expected confirmed key %q, got %v", want, keys)
	}
}

func TestController_AutoSaveToggle(t *testing.T) {
	creator := &switchCreator{}
	c := newController(t, creator, func(cfg *Config) { cfg.DisableAutoSave = true })
	ctx := context.Background()

	if c.AutoSave() {
		t.Fatal("expected auto-save off")
	}
	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()
	if got := creator.contents(); len(got) != 0 {
		t.Fatalf("expected nothing saved with auto-save off, got %v", got)
	}
	if len(c.Transcript()) != 1 {
		t.Error("transcript must still be recorded")
	}

	c.SetAutoSave(true)
	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()
	if got := creator.contents(); len(got) != 1 {
		t.Fatalf("expected the point saved after enabling, got %v", got)
	}
}

func TestController_SnapshotRehydrateAndMerge(t *testing.T) {
	snaps := &memorySnapshots{}
	creator := &switchCreator{}
	c := newController(t, creator, func(cfg *Config) { cfg.Snapshots = snaps })
	ctx := context.Background()

	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()

	stored, _ := snaps.Load(ctx, c.SnapshotKey())
	if len(stored) != 1 {
		t.Fatalf("expected snapshot merged, got %v", stored)
	}

	// A reconnect rehydrates, so the same point is not saved again.
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()

	if got := creator.contents(); len(got) != 1 {
		t.Fatalf("expected no duplicate after reconnect, got %v", got)
	}
}

func TestController_ConnectWithoutSnapshotsClears(t *testing.T) {
	creator := &switchCreator{}
	c := newController(t, creator, nil)
	ctx := context.Background()

	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if len(c.SeenKeys()) != 0 || len(c.Transcript()) != 0 {
		t.Fatal("expected a fresh session after Connect")
	}
}

func TestController_ConnectLoadFailure(t *testing.T) {
	snaps := &memorySnapshots{loadErr: errors.New("disk gone")}
	c, err := NewController(Config{CompanionID: "c", Notes: worker.NewManager(1, &switchCreator{}), Snapshots: snaps})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if c.Status() != StatusActive {
		t.Errorf("session should stay usable, status %s", c.Status())
	}
}

func TestController_EndArchivesOnce(t *testing.T) {
	history := &memoryHistory{}
	creator := &switchCreator{}
	c := newController(t, creator, func(cfg *Config) { cfg.History = history })
	ctx := context.Background()

	c.HandleMessage(ctx, final(domain.RoleUser, "What is photosynthesis?"))
	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.HandleMessage(ctx, domain.TranscriptMessage{Type: domain.MessageTypeCallEnd})

	// A meeting-ended error after call-end must not archive twice.
	c.HandleMessage(ctx, domain.TranscriptMessage{
		Type:  domain.MessageTypeError,
		Error: &domain.TransportError{Message: "Meeting has ended"},
	})
	ended, err := c.End(ctx)
	if err != nil || ended {
		t.Errorf("End after termination = %v, %v; want false, nil", ended, err)
	}

	if len(history.saved) != 1 {
		t.Fatalf("expected one archived session, got %d", len(history.saved))
	}
	h := history.saved[0]
	if h.SessionID != "sess-1" || h.Topic != "calculus" || h.Subject != "maths" {
		t.Errorf("unexpected history: %+v", h)
	}
	if len(h.Transcript) != 2 || h.NotesSaved != 1 {
		t.Errorf("expected 2 fragments and 1 note, got %d and %d", len(h.Transcript), h.NotesSaved)
	}
	if c.Status() != StatusFinished {
		t.Errorf("expected finished status, got %s", c.Status())
	}
}

func TestController_MeetingEndedWhilePaused(t *testing.T) {
	history := &memoryHistory{}
	c := newController(t, &switchCreator{}, func(cfg *Config) { cfg.History = history })
	ctx := context.Background()

	c.Pause()
	c.HandleMessage(ctx, domain.TranscriptMessage{
		Type:  domain.MessageTypeError,
		Error: &domain.TransportError{Type: "ejected"},
	})
	if c.Status() != StatusActive {
		t.Fatalf("paused session should ignore meeting end, status %s", c.Status())
	}

	c.Resume()
	c.HandleMessage(ctx, domain.TranscriptMessage{
		Type:  domain.MessageTypeError,
		Error: &domain.TransportError{Message: "The meeting has ended"},
	})
	if c.Status() != StatusFinished || len(history.saved) != 1 {
		t.Fatalf("expected archived finished session, status %s, saved %d", c.Status(), len(history.saved))
	}
}

func TestController_ConcurrentFragments(t *testing.T) {
	creator := &switchCreator{}
	c := newController(t, creator, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
		}()
	}
	wg.Wait()
	c.Wait()

	got := creator.contents()
	if len(got) != 1 {
		t.Fatalf("expected exactly one save across concurrent duplicates, got %v", got)
	}

	tr := c.Transcript()
	idx := make([]int, 0, len(tr))
	for _, f := range tr {
		idx = append(idx, f.Index)
	}
	sort.Ints(idx)
	for i, v := range idx {
		if v != i {
			t.Fatalf("fragment indexes not sequential: %v", idx)
		}
	}
}

func TestController_CallStartAfterPausedEndRestarts(t *testing.T) {
	history := &memoryHistory{}
	creator := &switchCreator{}
	c := newController(t, creator, func(cfg *Config) { cfg.History = history })
	ctx := context.Background()

	c.Pause()
	c.HandleMessage(ctx, domain.TranscriptMessage{Type: domain.MessageTypeCallEnd})
	if len(history.saved) != 0 {
		t.Fatal("paused session must not be archived")
	}

	c.HandleMessage(ctx, domain.TranscriptMessage{Type: domain.MessageTypeCallStart})
	c.HandleMessage(ctx, final(domain.RoleAssistant, photosynthesis))
	c.Wait()

	if got := creator.contents(); len(got) != 1 {
		t.Fatalf("expected extraction after restart, got %v", got)
	}
	if c.Status() != StatusActive {
		t.Errorf("expected active status, got %s", c.Status())
	}
}
