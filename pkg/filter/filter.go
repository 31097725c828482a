package filter

import (
	"regexp"
	"unicode/utf8"
)

// Filter decides whether a candidate text survives a gate.
type Filter interface {
	ShouldKeep(text string) bool
}

// FilterTexts applies all filters to a list of texts, keeping order.
func FilterTexts(texts []string, filters ...Filter) []string {
	filtered := make([]string, 0, len(texts))

	for _, text := range texts {
		if Keep(text, filters...) {
			filtered = append(filtered, text)
		}
	}

	return filtered
}

// Keep reports whether text passes every filter. Evaluation stops at the first rejection.
func Keep(text string, filters ...Filter) bool {
	for _, f := range filters {
		if !f.ShouldKeep(text) {
			return false
		}
	}
	return true
}

// LengthFilter keeps texts whose rune count lies within [Min, Max].
// A Max of zero means no upper bound.
type LengthFilter struct {
	Min int
	Max int
}

// NewLengthFilter creates a new length band filter
func NewLengthFilter(min, max int) *LengthFilter {
	return &LengthFilter{Min: min, Max: max}
}

// ShouldKeep returns false if text is outside the band
func (f *LengthFilter) ShouldKeep(text string) bool {
	n := utf8.RuneCountInString(text)
	if n < f.Min {
		return false
	}
	if f.Max > 0 && n > f.Max {
		return false
	}
	return true
}

// DefaultExclusionPatterns match conversational filler a tutor says around the
// actual teaching: greetings, session management, comprehension checks and
// acknowledgements. Greetings, steering and acknowledgements only count at
// the start of a sentence, since the same words occur inside real content
// ("a glove that is right-handed"). A steering phrase followed by a colon or
// semicolon introduces content and is kept.
var DefaultExclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(hi|hello|hey|welcome|good (morning|afternoon|evening))\b`),
	regexp.MustCompile(`(?i)^\s*let'?s (begin|start|get started|continue|move on|dive in|go ahead|try)\b[^:;]*$`),
	regexp.MustCompile(`(?i)\b(does|did) (that|this|it) make sense\b`),
	regexp.MustCompile(`(?i)\b(do you|any) (have any )?questions\b`),
	regexp.MustCompile(`(?i)\b(are you|you) (ready|following( me)?|with me)\b`),
	regexp.MustCompile(`(?i)^\s*(great|good|excellent|nice) (question|job|work|answer)\b`),
	regexp.MustCompile(`(?i)^\s*(that's|that is|you're|you are) (right|correct|exactly right)([\s,.!]|$)`),
	regexp.MustCompile(`(?i)^\s*(ok(ay)?|alright|all right|sure|yes|yeah|exactly|perfect|got it)\b[,.!]?`),
	regexp.MustCompile(`(?i)\b(thank you|thanks)\b`),
	regexp.MustCompile(`(?i)\b(see you|goodbye|bye)\b`),
	regexp.MustCompile(`(?i)\bhow are you\b`),
	regexp.MustCompile(`(?i)\btoday we'?ll be talking about\b`),
}

// ExclusionFilter rejects texts matching any conversational filler pattern,
// regardless of how much other signal they carry.
type ExclusionFilter struct {
	patterns []*regexp.Regexp
}

// NewExclusionFilter creates a filter over the given patterns, or the default
// set when none are supplied.
func NewExclusionFilter(patterns ...*regexp.Regexp) *ExclusionFilter {
	if len(patterns) == 0 {
		patterns = DefaultExclusionPatterns
	}
	return &ExclusionFilter{patterns: patterns}
}

// ShouldKeep returns false if text looks like conversational filler
func (f *ExclusionFilter) ShouldKeep(text string) bool {
	for _, p := range f.patterns {
		if p.MatchString(text) {
			return false
		}
	}
	return true
}

// Func adapts a plain predicate to the Filter interface.
type Func func(text string) bool

// ShouldKeep calls f(text)
func (f Func) ShouldKeep(text string) bool {
	return f(text)
}
