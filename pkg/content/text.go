package content

import (
	"regexp"
	"strings"

	"companion-notes/pkg/domain"

	"golang.org/x/text/unicode/norm"
)

var speakerPattern = regexp.MustCompile(`(?i)^\s*(tutor|teacher|assistant|companion|ai|student|user|learner)\s*:\s*`)

// Clean applies NFKC (full-width letters, ligatures, non-breaking spaces)
// and collapses every whitespace run to a single space.
func Clean(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// cleanLines is Clean applied per line; line breaks survive so list markers
// at line starts stay visible.
func cleanLines(s string) string {
	s = norm.NFKC.String(strings.ReplaceAll(s, "\r\n", "\n"))

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// roleFromLabel maps a speaker label to a transcript role.
func roleFromLabel(label string) (domain.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "assistant", "tutor", "teacher", "companion", "ai":
		return domain.RoleAssistant, true
	case "user", "student", "learner":
		return domain.RoleUser, true
	}
	return "", false
}

// SplitFragments turns a plain-text lesson transcript into fragments.
//
// Paragraphs (blank-line separated) become fragments. A line starting with a
// speaker label ("Tutor:", "Student:", ...) opens a new fragment for that
// speaker. Unlabelled text is attributed to the assistant.
func SplitFragments(text string) []domain.TranscriptFragment {
	var (
		fragments []domain.TranscriptFragment
		role      = domain.RoleAssistant
		lines     []string
	)

	flush := func() {
		body := strings.TrimSpace(strings.Join(lines, "\n"))
		lines = lines[:0]
		if body == "" {
			return
		}
		fragments = append(fragments, domain.TranscriptFragment{Role: role, Text: body, Index: len(fragments)})
	}

	for _, line := range strings.Split(cleanLines(text), "\n") {
		if line == "" {
			flush()
			continue
		}

		if m := speakerPattern.FindStringSubmatch(line); m != nil {
			flush()
			role, _ = roleFromLabel(m[1])
			line = line[len(m[0]):]
			if line == "" {
				continue
			}
		}
		lines = append(lines, line)
	}
	flush()

	return fragments
}
