package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"companion-notes/pkg/config"
	"companion-notes/pkg/db"
	"companion-notes/pkg/notes"
	"companion-notes/pkg/snapshot"
	"companion-notes/pkg/summary"
	"companion-notes/pkg/transport"
	"companion-notes/pkg/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var (
		addr     = flag.String("addr", cfg.ListenAddr, "Listen address")
		workers  = flag.Int("workers", cfg.Workers, "Parallel note saves per batch")
		mongoURI = flag.String("mongo-uri", cfg.MongoURI, "MongoDB connection string for session history (empty disables archiving)")
		snapPath = flag.String("snapshot-path", cfg.SnapshotPath, "SQLite file for seen key points (\"off\" disables)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, supa, err := db.OpenRepository(ctx, db.SupabaseConfig{
		ConnectionString: cfg.DatabaseURL,
		SupabaseURL:      cfg.SupabaseURL,
		SupabaseKey:      cfg.SupabaseKey,
		Password:         cfg.SupabasePassword,
	})
	if err != nil {
		log.Fatalf("Failed to open notes store: %v", err)
	}
	defer supa.Close()

	handler := &transport.Handler{
		Notes:          worker.NewManager(*workers, notes.NewService(repo, nil)),
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if *mongoURI != "" {
		history := db.NewClient(*mongoURI, cfg.MongoDB, cfg.MongoCollection)
		if err := history.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to session history: %v", err)
		}
		defer history.Close(context.Background())
		handler.History = history
	}

	if *snapPath != "off" {
		path := *snapPath
		if path == "" {
			path = snapshot.DefaultPath()
		}
		store, err := snapshot.Open(path)
		if err != nil {
			log.Fatalf("Failed to open snapshot store: %v", err)
		}
		defer store.Close()
		handler.Snapshots = store
		log.Printf("Snapshots at %s", path)
	}

	if cfg.SummariesEnabled() {
		gen := summary.NewGenerator(summary.GeneratorConfig{
			BaseURL: cfg.GroqBaseURL,
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
		})
		handler.Summaries = summary.NewService(repo, gen, nil)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Listening on %s (workers=%d, history=%t, summaries=%t)", *addr, *workers, handler.History != nil, handler.Summaries != nil)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
