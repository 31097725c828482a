package domain

import "time"

// SessionHistory records one completed voice session with a companion.
//
// It is archived separately from notes so the full transcript can be replayed
// or re-summarized later.
type SessionHistory struct {
	// SessionID is unique per voice session and is used as the upsert key.
	SessionID string `bson:"session_id" json:"session_id"`

	UserID      string `bson:"user_id" json:"user_id"`
	CompanionID string `bson:"companion_id" json:"companion_id"`

	Topic   string `bson:"topic,omitempty" json:"topic,omitempty"`
	Subject string `bson:"subject,omitempty" json:"subject,omitempty"`

	// Transcript holds every final fragment, user and assistant, in arrival order.
	Transcript []TranscriptFragment `bson:"transcript" json:"transcript"`

	// NotesSaved counts key points persisted during the session.
	NotesSaved int `bson:"notes_saved" json:"notes_saved"`

	StartedAt time.Time `bson:"started_at" json:"started_at"`
	EndedAt   time.Time `bson:"ended_at" json:"ended_at"`
}
