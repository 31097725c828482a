package main

import (
	"context"
	"flag"
	"log"
	"time"

	"companion-notes/pkg/config"
	"companion-notes/pkg/db"
	"companion-notes/pkg/replication"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var (
		mongoURI   = flag.String("mongo-uri", cfg.MongoURI, "MongoDB connection string")
		dbName     = flag.String("db", cfg.MongoDB, "MongoDB database name")
		collection = flag.String("collection", cfg.MongoCollection, "Session history collection")
		dsn        = flag.String("dsn", cfg.DatabaseURL, "Postgres connection string")
	)
	flag.Parse()

	ctx := context.Background()

	mongo := db.NewClient(*mongoURI, *dbName, *collection)
	if err := mongo.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close(ctx)

	pg := db.NewPostgresClient(db.PostgresConfig{DSN: *dsn})
	if err := pg.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pg.Close()

	r, err := replication.NewReplicator(replication.Config{Source: mongo, Postgres: pg})
	if err != nil {
		log.Fatalf("Failed to create replicator: %v", err)
	}

	start := time.Now()
	stats, err := r.ReplicateSessionHistory(ctx)
	if err != nil {
		log.Fatalf("Replication failed: %v", err)
	}
	log.Printf("Done. Inserted %d of %d sessions in %s", stats.Inserted, stats.Processed, time.Since(start))
}
