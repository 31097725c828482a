package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"companion-notes/pkg/config"
	"companion-notes/pkg/content"
	"companion-notes/pkg/db"
	"companion-notes/pkg/domain"
	"companion-notes/pkg/httpclient"
	"companion-notes/pkg/notes"
	"companion-notes/pkg/session"
	"companion-notes/pkg/snapshot"
	"companion-notes/pkg/summary"
	"companion-notes/pkg/worker"
)

// printingSaver prints every note before handing the batch on. With no next
// saver the run is a dry run and every note counts as saved.
type printingSaver struct {
	next session.NoteSaver
}

func (p printingSaver) SaveNotes(ctx context.Context, batch []domain.NoteInput) (worker.BatchResult, error) {
	for _, n := range batch {
		fmt.Printf("  - %s\n", n.Content)
	}
	if p.next == nil {
		return worker.BatchResult{Succeeded: len(batch)}, nil
	}
	return p.next.SaveNotes(ctx, batch)
}

func main() {
	var (
		source      = flag.String("source", "", "Lesson transcript: local .txt/.pdf/.html file or http(s) URL")
		topic       = flag.String("topic", "", "Lesson topic used for relevance scoring")
		subject     = flag.String("subject", "", "Lesson subject")
		companionID = flag.String("companion", "cli", "Companion id the notes belong to")
		userID      = flag.String("user", "", "Owner of the saved notes (required with -persist)")
		sessionID   = flag.String("session", "", "Session id recorded with the notes")
		persist     = flag.Bool("persist", false, "Save notes to Supabase instead of only printing them")
		summarize   = flag.Bool("summarize", false, "Generate study points for the whole lesson")
		useSnaps    = flag.Bool("snapshots", true, "Skip points already saved in earlier runs (with -persist)")
		client      = flag.String("client", string(httpclient.BrowserClient), "HTTP client preset for URLs: browser or plain")
		timeout     = flag.Duration("timeout", 2*time.Minute, "Overall run timeout")
	)
	flag.Parse()

	if *source == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	lesson, err := content.NewLoader(httpclient.ClientType(*client)).Load(ctx, *source)
	if err != nil {
		log.Fatalf("Failed to load lesson: %v", err)
	}
	log.Printf("Loaded %q (%s, %d fragments)", lesson.Title, lesson.Format, len(lesson.Fragments))

	var (
		saver = printingSaver{}
		repo  db.Repository
		snaps session.SnapshotStore
	)
	if *persist {
		if *userID == "" {
			log.Fatalf("-user is required with -persist")
		}
		var supa *db.SupabaseClient
		repo, supa, err = db.OpenRepository(ctx, supabaseConfig(cfg))
		if err != nil {
			log.Fatalf("Failed to open notes store: %v", err)
		}
		defer supa.Close()

		saver.next = worker.NewManager(cfg.Workers, notes.NewService(repo, nil))

		if *useSnaps && !cfg.SnapshotsDisabled() {
			path := cfg.SnapshotPath
			if path == "" {
				path = snapshot.DefaultPath()
			}
			store, err := snapshot.Open(path)
			if err != nil {
				log.Fatalf("Failed to open snapshot store: %v", err)
			}
			defer store.Close()
			snaps = store
		}
	}

	ctrl, err := session.NewController(session.Config{
		UserID:      *userID,
		CompanionID: *companionID,
		SessionID:   *sessionID,
		Topic:       *topic,
		Subject:     *subject,
		Notes:       saver,
		Snapshots:   snaps,
	})
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	if err := ctrl.Connect(ctx); err != nil {
		log.Printf("Snapshot unavailable, starting fresh: %v", err)
	}

	fmt.Println("Key points:")
	replay(ctx, ctrl, lesson.Fragments)
	if _, err := ctrl.End(ctx); err != nil {
		log.Printf("Failed to close session: %v", err)
	}
	hist := ctrl.History()
	log.Printf("Done: %d fragments, %d notes saved", len(hist.Transcript), hist.NotesSaved)

	if *summarize {
		if err := runSummary(ctx, cfg, repo, *userID, *companionID, *sessionID, *topic, *subject, hist.Transcript); err != nil {
			log.Fatalf("Summary failed: %v", err)
		}
	}
}

// replay feeds lesson fragments to the controller as a voice call would.
func replay(ctx context.Context, ctrl *session.Controller, fragments []domain.TranscriptFragment) {
	ctrl.HandleMessage(ctx, domain.TranscriptMessage{Type: domain.MessageTypeCallStart})
	for _, f := range fragments {
		ctrl.HandleMessage(ctx, domain.TranscriptMessage{
			Type:           domain.MessageTypeTranscript,
			TranscriptType: domain.TranscriptTypeFinal,
			Role:           f.Role,
			Transcript:     f.Text,
		})
		// Saves overlap with extraction in a live call; here they are drained
		// per fragment so the printed notes follow lesson order.
		ctrl.Wait()
	}
}

func runSummary(ctx context.Context, cfg config.Config, repo db.Repository, userID, companionID, sessionID, topic, subject string, transcript []domain.TranscriptFragment) error {
	if !cfg.SummariesEnabled() {
		return fmt.Errorf("GROQ_API_KEY is not set")
	}
	gen := summary.NewGenerator(summary.GeneratorConfig{
		BaseURL: cfg.GroqBaseURL,
		APIKey:  cfg.GroqAPIKey,
		Model:   cfg.GroqModel,
	})
	text := summary.FormatTranscript(transcript)

	var points []string
	if repo == nil {
		var err error
		points, err = gen.Generate(ctx, summary.Request{Topic: topic, Subject: subject, Transcript: text})
		if err != nil {
			return err
		}
	} else {
		res, err := summary.NewService(repo, gen, nil).Summarize(ctx, summary.SummarizeInput{
			UserID:      userID,
			CompanionID: companionID,
			SessionID:   sessionID,
			Topic:       topic,
			Subject:     subject,
			Transcript:  text,
		})
		if err != nil {
			return err
		}
		if !res.Saved {
			log.Printf("Identical summary already stored, not saved again")
		}
		points = res.Points
	}

	fmt.Println("Summary:")
	for _, p := range points {
		fmt.Printf("  * %s\n", p)
	}
	return nil
}

func supabaseConfig(cfg config.Config) db.SupabaseConfig {
	return db.SupabaseConfig{
		ConnectionString: cfg.DatabaseURL,
		SupabaseURL:      cfg.SupabaseURL,
		SupabaseKey:      cfg.SupabaseKey,
		Password:         cfg.SupabasePassword,
	}
}
