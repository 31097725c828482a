package domain

import "time"

// Note is a saved note attached to a companion, either typed by the user or
// auto-extracted from the live transcript.
type Note struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CompanionID string     `json:"companion_id"`
	SessionID   *string    `json:"session_id"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// NoteInput is the payload for creating a note.
//
// Path is the page that shows the companion's notes; it is handed to the
// refresh hook after a successful insert.
type NoteInput struct {
	UserID      string
	CompanionID string
	SessionID   string
	Content     string
	Path        string
}

// ActionResult mirrors the {success, error} responses returned by note and
// summary operations. Success false with a nil Go error means the request was
// rejected (validation, authorization) rather than failing in transit.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Failed builds a rejected ActionResult.
func Failed(msg string) ActionResult {
	return ActionResult{Success: false, Error: msg}
}

// Succeeded is the accepted ActionResult.
var Succeeded = ActionResult{Success: true}
