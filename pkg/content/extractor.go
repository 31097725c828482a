package content

import (
	"fmt"
	"strings"

	"companion-notes/pkg/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ExtractText extracts the main lesson text from an HTML page
func ExtractText(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	return strings.TrimSpace(article.TextContent), nil
}

// ExtractTitle extracts the page title with fallback mechanisms
func ExtractTitle(htmlContent string) (string, error) {
	// Try readability first
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, sel := range []string{"title", "h1"} {
		if title := strings.TrimSpace(doc.Find(sel).First().Text()); title != "" {
			return title, nil
		}
	}
	for _, sel := range []string{"meta[property='og:title']", "meta[name='title']"} {
		if title, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(title) != "" {
			return strings.TrimSpace(title), nil
		}
	}

	return "", fmt.Errorf("title not found in HTML")
}

// ExtractUtterances reads speaker-tagged transcript markup:
//
//	<p data-role="assistant">...</p>
//	<div class="utterance" data-speaker="Student">...</div>
//
// It returns nil when the page carries no such markup.
func ExtractUtterances(htmlContent string) ([]domain.TranscriptFragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var fragments []domain.TranscriptFragment
	doc.Find("[data-role], [data-speaker]").Each(func(_ int, s *goquery.Selection) {
		label, ok := s.Attr("data-role")
		if !ok {
			label, _ = s.Attr("data-speaker")
		}
		role, known := roleFromLabel(label)
		if !known {
			return
		}

		text := Clean(s.Text())
		if text == "" {
			return
		}
		fragments = append(fragments, domain.TranscriptFragment{Role: role, Text: text, Index: len(fragments)})
	})

	return fragments, nil
}
