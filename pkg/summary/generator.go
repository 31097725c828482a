package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"companion-notes/pkg/domain"
	"companion-notes/pkg/httpclient"
)

var (
	// ErrNotEnoughContent is returned for transcripts too short to summarize.
	ErrNotEnoughContent = errors.New("not enough content to summarize")
	// ErrInvalidSummary is returned when the model answer is not a non-empty JSON array of strings.
	ErrInvalidSummary = errors.New("invalid summary format")
	// ErrGenerationFailed wraps non-2xx answers from the completion API.
	ErrGenerationFailed = errors.New("failed to generate summary")
)

// MinTranscriptLength is the shortest transcript sent to the model.
const MinTranscriptLength = 100

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	systemPrompt = "You are a helpful assistant that creates concise study summaries."
)

// GeneratorConfig configures the chat-completions call.
type GeneratorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Generator asks an OpenAI-compatible chat-completions API for study points.
type Generator struct {
	client *httpclient.HTTPClient
	cfg    GeneratorConfig
}

// NewGenerator creates a generator, filling unset fields with defaults.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.5
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Generator{
		client: httpclient.NewAPIClient(cfg.APIKey, cfg.Timeout),
		cfg:    cfg,
	}
}

// Request is the lesson to summarize.
type Request struct {
	Topic      string
	Subject    string
	Transcript string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate returns 5-8 short study points for the lesson.
func (g *Generator) Generate(ctx context.Context, req Request) ([]string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(req.Transcript)) < MinTranscriptLength {
		return nil, ErrNotEnoughContent
	}

	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call completions API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrInvalidSummary
	}

	return ParsePoints(parsed.Choices[0].Message.Content)
}

func userPrompt(req Request) string {
	return fmt.Sprintf(`Summarize this lesson about "%s" in %s.

Extract 5-8 brief key points (10-20 words each). Make them clear and actionable for students.

Transcript:
%s

Respond ONLY with a JSON array of strings:
["point 1", "point 2", ...]`, req.Topic, req.Subject, req.Transcript)
}

// ParsePoints decodes a model answer into points. Markdown code fences are
// removed first; blank points are dropped.
func ParsePoints(content string) ([]string, error) {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var points []string
	if err := json.Unmarshal([]byte(clean), &points); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSummary, err)
	}

	out := points[:0]
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidSummary
	}
	return out, nil
}

// FormatTranscript renders session fragments as "role: text" lines.
func FormatTranscript(fragments []domain.TranscriptFragment) string {
	var b strings.Builder
	for _, f := range fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(f.Role))
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
