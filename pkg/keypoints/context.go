package keypoints

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Context carries the session topic and subject used for relevance scoring.
// Both are fixed for the lifetime of a session.
type Context struct {
	Topic   string
	Subject string
}

// minTopicTokenLength excludes short words ("the", "of", "and") from topic matching.
const minTopicTokenLength = 4

// TopicTokens returns the lowercased topic words longer than three characters.
func (c Context) TopicTokens() []string {
	words := strings.FieldsFunc(strings.ToLower(c.Topic), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minTopicTokenLength {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// IsRelevant reports whether text mentions the topic or subject.
// Without a topic every text is relevant.
func (c Context) IsRelevant(text string) bool {
	if strings.TrimSpace(c.Topic) == "" {
		return true
	}

	lower := strings.ToLower(text)
	for _, token := range c.TopicTokens() {
		if strings.Contains(lower, token) {
			return true
		}
	}

	subject := strings.ToLower(strings.TrimSpace(c.Subject))
	return subject != "" && strings.Contains(lower, subject)
}
