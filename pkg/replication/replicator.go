package replication

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"companion-notes/pkg/db"
	"companion-notes/pkg/domain"
)

const (
	batchSize  = 100
	numWorkers = 5
)

var (
	errNoSource     = errors.New("session history source is required")
	errNoPostgres   = errors.New("postgres client is required")
	errNotConnected = errors.New("postgres DB not connected")
)

// HistorySource lists every archived session. Implemented by db.Client.
type HistorySource interface {
	GetAllSessionHistory(ctx context.Context) ([]domain.SessionHistory, error)
}

// Config wires the replication dependencies.
type Config struct {
	Source   HistorySource
	Postgres db.DBProvider
}

// Replicator copies the Mongo session-history archive into the Postgres
// session_history table so sessions can be queried next to notes and
// summaries. Sessions already present in Postgres are skipped.
type Replicator struct {
	source HistorySource
	pg     db.DBProvider
}

// Stats reports one replication run.
type Stats struct {
	Processed int
	Inserted  int
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, errNoSource
	}
	if cfg.Postgres == nil {
		return nil, errNoPostgres
	}
	return &Replicator{source: cfg.Source, pg: cfg.Postgres}, nil
}

// ReplicateSessionHistory reads all sessions from the archive and inserts
// the missing ones into Postgres in parallel batches. It stops at the first
// failing batch.
func (r *Replicator) ReplicateSessionHistory(ctx context.Context) (Stats, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return Stats{}, err
	}

	sessions, err := r.source.GetAllSessionHistory(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read session history: %w", err)
	}
	log.Printf("replication: loaded %d sessions from archive", len(sessions))

	stats, err := r.processBatches(ctx, sessions)
	if err != nil {
		return stats, err
	}

	log.Printf("replication: processed %d sessions, inserted %d", stats.Processed, stats.Inserted)
	return stats, nil
}

func (r *Replicator) processBatches(ctx context.Context, sessions []domain.SessionHistory) (Stats, error) {
	type batchJob struct {
		batch      []domain.SessionHistory
		start, end int
	}
	type batchResult struct {
		processed int
		inserted  int
		err       error
	}

	numBatches := (len(sessions) + batchSize - 1) / batchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(sessions); start += batchSize {
		end := batchEnd(start, batchSize, len(sessions))
		jobs <- batchJob{batch: sessions[start:end], start: start, end: end}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				inserted, err := r.processBatch(ctx, job.batch, job.start, job.end)
				results <- batchResult{processed: len(job.batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	var firstErr error
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		stats.Processed += result.processed
		stats.Inserted += result.inserted
	}
	return stats, firstErr
}

func batchEnd(start, size, total int) int {
	end := start + size
	if end > total {
		return total
	}
	return end
}

func (r *Replicator) processBatch(ctx context.Context, batch []domain.SessionHistory, start, end int) (int, error) {
	existing, err := r.existingSessionIDs(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("check existing sessions [%d:%d]: %w", start, end, err)
	}

	toInsert := filterNew(batch, existing)
	if len(toInsert) == 0 {
		return 0, nil
	}

	if err := r.insertTx(ctx, toInsert); err != nil {
		return 0, fmt.Errorf("insert batch [%d:%d]: %w", start, end, err)
	}
	log.Printf("replication: batch [%d:%d] inserted %d of %d", start, end, len(toInsert), len(batch))
	return len(toInsert), nil
}

func (r *Replicator) ensureSchema(ctx context.Context) error {
	if r.pg.DB() == nil {
		return errNotConnected
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS session_history (
  session_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL DEFAULT '',
  companion_id TEXT NOT NULL,
  topic TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  transcript JSONB NOT NULL DEFAULT '[]'::jsonb,
  notes_saved INTEGER NOT NULL DEFAULT 0,
  started_at TIMESTAMPTZ,
  ended_at TIMESTAMPTZ
);`

	if _, err := r.pg.DB().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create session_history table: %w", err)
	}
	return nil
}

func (r *Replicator) existingSessionIDs(ctx context.Context, batch []domain.SessionHistory) (map[string]bool, error) {
	ids := make([]string, 0, len(batch))
	for _, s := range batch {
		if s.SessionID != "" {
			ids = append(ids, s.SessionID)
		}
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args := buildSessionInQuery(ids)
	rows, err := r.pg.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing sessions: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		set[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return set, nil
}

// buildSessionInQuery tags each statement with the batch size and a hash of
// its first id so parallel batches never share a cached prepared statement.
func buildSessionInQuery(ids []string) (string, []interface{}) {
	hash := md5.Sum([]byte(ids[0]))

	var b strings.Builder
	fmt.Fprintf(&b, "/* q_%d_%x */ SELECT session_id FROM session_history WHERE session_id IN (", len(ids), hash[:4])
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
		args[i] = id
	}
	b.WriteString(")")
	return b.String(), args
}

// filterNew drops sessions without an id and those already replicated.
func filterNew(all []domain.SessionHistory, existing map[string]bool) []domain.SessionHistory {
	out := make([]domain.SessionHistory, 0, len(all))
	for _, s := range all {
		if s.SessionID == "" || existing[s.SessionID] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *Replicator) insertTx(ctx context.Context, batch []domain.SessionHistory) error {
	tx, err := r.pg.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `
INSERT INTO session_history (session_id, user_id, companion_id, topic, subject, transcript, notes_saved, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
ON CONFLICT (session_id) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range batch {
		transcript, err := encodeTranscript(s.Transcript)
		if err != nil {
			return fmt.Errorf("encode transcript session=%q: %w", s.SessionID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.SessionID, s.UserID, s.CompanionID, s.Topic, s.Subject,
			transcript, s.NotesSaved, nullableTime(s.StartedAt), nullableTime(s.EndedAt)); err != nil {
			return fmt.Errorf("insert session=%q: %w", s.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func encodeTranscript(fragments []domain.TranscriptFragment) (string, error) {
	if fragments == nil {
		fragments = []domain.TranscriptFragment{}
	}
	raw, err := json.Marshal(fragments)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
