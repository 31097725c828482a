package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"companion-notes/pkg/domain"
)

// Client frame types beyond the voice transport events in domain.
const (
	TypeHello   = "hello"
	TypeControl = "control"
)

// Control operations.
const (
	OpPause       = "pause"
	OpResume      = "resume"
	OpAutoSaveOn  = "auto-save-on"
	OpAutoSaveOff = "auto-save-off"
)

// Server frame types.
const (
	TypeHelloAck     = "hello_ack"
	TypeNotesSaved   = "notes_saved"
	TypeRefresh      = "refresh"
	TypeSessionEnded = "session_ended"
	TypeSummary      = "summary"
	TypeError        = "error"
)

var errMissingType = errors.New("frame type is required")

// Hello opens a session. It must be the first frame on a connection.
type Hello struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	CompanionID string `json:"companionId"`
	SessionID   string `json:"sessionId,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Path        string `json:"path,omitempty"`
	AutoSave    *bool  `json:"autoSave,omitempty"`
}

// notesPath is the page refreshed after saves, /companions/{id} unless the
// client named one.
func (h Hello) notesPath() string {
	if h.Path != "" {
		return h.Path
	}
	return "/companions/" + h.CompanionID
}

// Control changes session settings mid-call.
type Control struct {
	Type string `json:"type"`
	Op   string `json:"op"`
}

// HelloAck confirms the session.
type HelloAck struct {
	Type        string `json:"type"`
	SessionKey  string `json:"sessionKey"`
	SavedPoints int    `json:"savedPoints"`
	AutoSave    bool   `json:"autoSave"`
}

// NotesSaved reports the normalized points of a saved batch.
type NotesSaved struct {
	Type   string   `json:"type"`
	Points []string `json:"points"`
}

// Refresh tells the client the notes page changed.
type Refresh struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// SessionEnded reports the archived session.
type SessionEnded struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId"`
	Fragments  int    `json:"fragments"`
	NotesSaved int    `json:"notesSaved"`
}

// SummaryFrame carries generated study points.
type SummaryFrame struct {
	Type   string   `json:"type"`
	Points []string `json:"points"`
	Saved  bool     `json:"saved"`
}

// ErrorFrame reports a protocol or session error.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeFrame reads a client frame after the hello: either a voice
// transport event or a control frame.
func decodeFrame(data []byte) (interface{}, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch strings.TrimSpace(head.Type) {
	case "":
		return nil, errMissingType
	case TypeControl:
		var c Control
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode control: %w", err)
		}
		return c, nil
	default:
		var m domain.TranscriptMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		return m, nil
	}
}
