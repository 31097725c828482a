package domain

import "time"

// Summary is an LLM-generated set of study points for a session.
// Title holds the session topic.
type Summary struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CompanionID string     `json:"companion_id"`
	SessionID   *string    `json:"session_id"`
	Title       *string    `json:"title"`
	Points      []string   `json:"points"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Topic returns the title or an empty string.
func (s Summary) Topic() string {
	if s.Title == nil {
		return ""
	}
	return *s.Title
}

// SummaryInput is the payload for creating a summary.
type SummaryInput struct {
	UserID      string
	CompanionID string
	SessionID   string
	Title       string
	Points      []string
	Path        string
}
