package content

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	errEmptyHTML         = errors.New("empty HTML content")
	errNoTranscriptLink  = errors.New("no transcript link found in HTML")
	errFailedToParseHTML = errors.New("failed to parse HTML for transcript link")
)

// FindTranscriptURL locates a link to a lesson transcript document in a page.
//
// Links are ranked:
//  1. anchor text mentions "transcript" and the href is a .pdf/.txt document
//  2. the href is a .pdf/.txt document
//  3. anchor text mentions "transcript"
//
// Relative links are resolved against base when base is not empty.
func FindTranscriptURL(html, base string) (string, error) {
	html = strings.TrimSpace(html)
	if html == "" {
		return "", errEmptyHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Join(errFailedToParseHTML, err)
	}

	var ranked [3][]string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}

		docLike := isTranscriptDocument(href)
		mentions := strings.Contains(strings.ToLower(sel.Text()), "transcript")

		switch {
		case docLike && mentions:
			ranked[0] = append(ranked[0], href)
		case docLike:
			ranked[1] = append(ranked[1], href)
		case mentions:
			ranked[2] = append(ranked[2], href)
		}
	})

	for _, hrefs := range ranked {
		if len(hrefs) > 0 {
			return resolve(base, hrefs[0]), nil
		}
	}
	return "", errNoTranscriptLink
}

// isTranscriptDocument reports whether href points at a .pdf or .txt file.
func isTranscriptDocument(href string) bool {
	p := href
	if parsed, err := url.Parse(href); err == nil {
		p = parsed.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".pdf", ".txt":
		return true
	default:
		return false
	}
}

func resolve(base, href string) string {
	if base == "" {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
