package keypoints

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"companion-notes/pkg/filter"
)

// Pass identifies which generator pass proposed a candidate.
type Pass int

const (
	// PassList candidates are explicit bullet or numbered list items.
	PassList Pass = iota + 1
	// PassAnchored candidates are sentences carrying a pedagogical, definition or causal anchor.
	PassAnchored
	// PassFallback candidates are generic explanatory sentences.
	PassFallback
)

func (p Pass) String() string {
	switch p {
	case PassList:
		return "list"
	case PassAnchored:
		return "anchored"
	case PassFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Candidate is a substring of a fragment proposed as a key point.
type Candidate struct {
	Text                string
	SourceFragmentIndex int
	Pass                Pass
}

const (
	// MinFragmentLength is the trimmed length below which a fragment carries
	// too little signal to mine.
	MinFragmentLength = 50

	minListLineLength = 60
	minListItemLength = 60
	maxListItemLength = 300

	minSentenceLength = 50
	maxSentenceLength = 300

	// fallbackThreshold triggers the fallback pass when fewer candidates survive.
	fallbackThreshold = 2
)

var (
	listItemBand = filter.NewLengthFilter(minListItemLength, maxListItemLength)
	sentenceBand = filter.NewLengthFilter(minSentenceLength, maxSentenceLength)
	exclusion    = filter.NewExclusionFilter()
)

// GenerateCandidates proposes key-point candidates from one fragment.
//
// Three passes run in order and append to the same list: list items,
// anchored sentences, and (only while fewer than two candidates survived)
// generic explanatory sentences. Conversational filler is rejected in every
// pass, and a candidate whose normalized form was already proposed is dropped.
func GenerateCandidates(text string, index int, ctx Context) []Candidate {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinFragmentLength {
		return nil
	}

	c := &collector{
		index: index,
		keys:  make(map[string]bool),
		gates: []filter.Filter{exclusion},
	}

	c.listItems(text)

	sentences := splitSentences(text)
	c.anchoredSentences(sentences)

	if len(c.out) < fallbackThreshold {
		c.fallbackSentences(sentences)
	}

	return c.out
}

type collector struct {
	index int
	keys  map[string]bool
	gates []filter.Filter
	out   []Candidate
}

func (c *collector) add(text string, pass Pass) {
	if !filter.Keep(text, c.gates...) {
		return
	}

	key := Normalize(text)
	if key == "" || c.keys[key] {
		return
	}
	c.keys[key] = true

	c.out = append(c.out, Candidate{Text: text, SourceFragmentIndex: c.index, Pass: pass})
}

func (c *collector) listItems(text string) {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if utf8.RuneCountInString(line) < minListLineLength {
			continue
		}

		m := bulletPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		item := strings.TrimSpace(m[1])
		if !listItemBand.ShouldKeep(item) {
			continue
		}

		c.add(withTerminal(item), PassList)
	}
}

func (c *collector) anchoredSentences(sentences []sentence) {
	for i := 0; i < len(sentences); i++ {
		sent := sentences[i]
		if !sentenceBand.ShouldKeep(sent.text) || !isAnchored(sent.text) {
			continue
		}

		point := sent.text
		if i+1 < len(sentences) && canMerge(sent, sentences[i+1]) {
			point += " " + sentences[i+1].text
			i++
		}

		c.add(point, PassAnchored)
	}
}

// canMerge reports whether next continues cur: cur stopped at a line break
// without terminal punctuation and neither side is a list item.
func canMerge(cur, next sentence) bool {
	if cur.listItem || next.listItem || hasTerminal(cur.text) {
		return false
	}
	return utf8.RuneCountInString(cur.text)+utf8.RuneCountInString(next.text) < maxSentenceLength
}

func (c *collector) fallbackSentences(sentences []sentence) {
	for _, s := range sentences {
		sent := s.text
		if !sentenceBand.ShouldKeep(sent) || !hasTerminal(sent) {
			continue
		}
		if strings.Contains(sent, "?") {
			continue
		}
		if !substantivePattern.MatchString(sent) || transitionalPattern.MatchString(sent) {
			continue
		}

		c.add(sent, PassFallback)
	}
}

func isAnchored(sent string) bool {
	return strongPattern.MatchString(sent) ||
		definitionAnchorPattern.MatchString(sent) ||
		causalPattern.MatchString(sent)
}

type sentence struct {
	text     string
	listItem bool
}

// splitSentences splits each line after '.', '!' or '?' when followed by
// whitespace, keeping the punctuation on the sentence. A line break always
// ends a sentence. Leading list markers are removed per line and per
// sentence so a list line and its sentence form normalize to the same key.
func splitSentences(text string) []sentence {
	var out []sentence
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		body, lineItem := stripListMarker(line)
		for _, part := range splitLine(body) {
			part, item := stripListMarker(part)
			if part == "" {
				continue
			}
			out = append(out, sentence{text: part, listItem: lineItem || item})
		}
	}
	return out
}

func splitLine(line string) []string {
	runes := []rune(line)
	var out []string

	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}

		out = append(out, strings.TrimSpace(string(runes[start:i+1])))

		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, strings.TrimSpace(string(runes[start:])))
	}

	return out
}

func stripListMarker(s string) (string, bool) {
	if m := bulletPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return s, false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func hasTerminal(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isTerminal(r)
}

func withTerminal(s string) string {
	if hasTerminal(s) {
		return s
	}
	return s + "."
}
