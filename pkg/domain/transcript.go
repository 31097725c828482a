package domain

// Role identifies who spoke a transcript fragment.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message types emitted by the voice transport.
const (
	MessageTypeTranscript = "transcript"
	MessageTypeCallStart  = "call-start"
	MessageTypeCallEnd    = "call-end"
	MessageTypeError      = "error"

	TranscriptTypeFinal   = "final"
	TranscriptTypePartial = "partial"
)

// TranscriptMessage is the event shape delivered by the voice transport.
// Only final transcripts are recorded; partial ones are superseded by the final version.
type TranscriptMessage struct {
	Type           string `json:"type"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Role           Role   `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`

	Error *TransportError `json:"error,omitempty"`
}

// TransportError is the payload of an error event.
type TransportError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"msg,omitempty"`
}

// IsFinalTranscript reports whether the message carries a finalized utterance.
func (m TranscriptMessage) IsFinalTranscript() bool {
	return m.Type == MessageTypeTranscript && m.TranscriptType == TranscriptTypeFinal
}

// TranscriptFragment is one finalized utterance from the voice session.
// Index is the arrival order within the session.
type TranscriptFragment struct {
	Role  Role   `bson:"role" json:"role"`
	Text  string `bson:"text" json:"text"`
	Index int    `bson:"index" json:"index"`
}
