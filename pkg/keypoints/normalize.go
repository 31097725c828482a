package keypoints

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize canonicalizes a point into a comparison key: lowercased,
// whitespace runs collapsed to one space, trailing bullets, dashes,
// underscores, asterisks and periods stripped.
//
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	// cases.Caser keeps state between calls, so one per call.
	s := cases.Lower(language.Und).String(text)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRightFunc(s, isTrailingNoise)
	return strings.TrimSpace(s)
}

func isTrailingNoise(r rune) bool {
	switch r {
	case '-', '*', '_', '•', '.':
		return true
	}
	return unicode.IsSpace(r)
}
