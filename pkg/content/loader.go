package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"companion-notes/pkg/domain"
	"companion-notes/pkg/httpclient"
)

// ErrEmptySource is returned when Load gets no path or URL.
var ErrEmptySource = errors.New("lesson source is empty")

// ErrNoText is returned when a source yields no readable text.
var ErrNoText = errors.New("no text found in lesson source")

// Format is the document type of a lesson source.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Lesson is a loaded lesson transcript.
type Lesson struct {
	Source    string
	Title     string
	Format    Format
	Fragments []domain.TranscriptFragment
}

// Text joins the fragments back into one transcript.
func (l *Lesson) Text() string {
	parts := make([]string, 0, len(l.Fragments))
	for _, f := range l.Fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Loader reads lesson transcripts from files or URLs.
type Loader struct {
	client *httpclient.HTTPClient
}

// NewLoader creates a loader fetching pages with the given client type.
func NewLoader(clientType httpclient.ClientType) *Loader {
	return &Loader{client: httpclient.NewClient(clientType)}
}

// Load reads a lesson from a local path or an http(s) URL.
//
// HTML pages are read as speaker-tagged utterances when present. Otherwise a
// linked .pdf/.txt transcript is followed (one hop), and the readable page
// text is the last resort.
func (l *Loader) Load(ctx context.Context, source string) (*Lesson, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrEmptySource
	}

	if isURL(source) {
		return l.loadURL(ctx, source, true)
	}
	return l.loadFile(source)
}

func (l *Loader) loadFile(path string) (*Lesson, error) {
	format := formatFromName(path)
	lesson := &Lesson{Source: path, Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), Format: format}

	if format == FormatPDF {
		text, err := TextFromPDFFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pdf %s: %w", path, err)
		}
		return lesson.withText(text)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if format == FormatHTML {
		return l.fromHTML(context.Background(), lesson, string(data), false)
	}
	return lesson.withText(string(data))
}

func (l *Loader) loadURL(ctx context.Context, rawURL string, followLinks bool) (*Lesson, error) {
	resp, err := l.client.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status code %d", rawURL, resp.StatusCode)
	}

	format := formatFromContentType(resp.Header.Get("Content-Type"))
	if format == "" {
		format = formatFromName(rawURL)
	}
	lesson := &Lesson{Source: rawURL, Format: format}

	switch format {
	case FormatPDF:
		text, err := TextFromPDFReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read pdf %s: %w", rawURL, err)
		}
		return lesson.withText(text)
	case FormatHTML:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return l.fromHTML(ctx, lesson, string(body), followLinks)
	default:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return lesson.withText(string(body))
	}
}

func (l *Loader) fromHTML(ctx context.Context, lesson *Lesson, html string, followLinks bool) (*Lesson, error) {
	if title, err := ExtractTitle(html); err == nil {
		lesson.Title = title
	}

	fragments, err := ExtractUtterances(html)
	if err != nil {
		return nil, err
	}
	if len(fragments) > 0 {
		lesson.Fragments = fragments
		return lesson, nil
	}

	if followLinks {
		if link, err := FindTranscriptURL(html, lesson.Source); err == nil && isURL(link) && isTranscriptDocument(link) {
			linked, err := l.loadURL(ctx, link, false)
			if err == nil {
				if linked.Title == "" {
					linked.Title = lesson.Title
				}
				return linked, nil
			}
			log.Printf("content: linked transcript %s failed, using page text: %v", link, err)
		}
	}

	text, err := ExtractText(html)
	if err != nil {
		return nil, err
	}
	return lesson.withText(text)
}

func (l *Lesson) withText(text string) (*Lesson, error) {
	l.Fragments = SplitFragments(text)
	if len(l.Fragments) == 0 {
		return nil, fmt.Errorf("%s: %w", l.Source, ErrNoText)
	}
	return l, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func formatFromName(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatText
}

func formatFromContentType(ct string) Format {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return FormatPDF
	case strings.Contains(ct, "text/html"), strings.Contains(ct, "application/xhtml"):
		return FormatHTML
	case strings.Contains(ct, "text/plain"):
		return FormatText
	}
	return ""
}
