package keypoints

import (
	"sort"
	"unicode/utf8"
)

// Rule is one weighted scoring heuristic.
type Rule struct {
	Name   string
	Weight int
	Match  func(c Candidate, ctx Context) bool
}

// MinScore is the precision gate: candidates scoring below it are discarded.
const MinScore = 3

// Rules is the default scoring table, evaluated in order. Scores are additive.
var Rules = []Rule{
	{Name: "length>=100", Weight: 2, Match: minLength(100)},
	{Name: "length>=150", Weight: 1, Match: minLength(150)},
	{Name: "strong-keyword", Weight: 3, Match: matchText(strongPattern.MatchString)},
	{Name: "definition", Weight: 2, Match: matchText(definitionPattern.MatchString)},
	{Name: "topic-relevant", Weight: 2, Match: func(c Candidate, ctx Context) bool { return ctx.IsRelevant(c.Text) }},
	{Name: "example-marker", Weight: 1, Match: matchText(examplePattern.MatchString)},
	{Name: "list-item", Weight: 3, Match: func(c Candidate, _ Context) bool { return c.Pass == PassList }},
}

func minLength(n int) func(Candidate, Context) bool {
	return func(c Candidate, _ Context) bool {
		return utf8.RuneCountInString(c.Text) >= n
	}
}

func matchText(fn func(string) bool) func(Candidate, Context) bool {
	return func(c Candidate, _ Context) bool {
		return fn(c.Text)
	}
}

// ScoredCandidate is a candidate with its score and the rules that fired.
type ScoredCandidate struct {
	Candidate
	Score   int
	Matched []string
}

// Ranker scores candidates against a rule table.
type Ranker struct {
	Rules    []Rule
	MinScore int
}

// DefaultRanker uses Rules and MinScore.
var DefaultRanker = Ranker{Rules: Rules, MinScore: MinScore}

// Score applies every rule to c.
func (r Ranker) Score(c Candidate, ctx Context) ScoredCandidate {
	sc := ScoredCandidate{Candidate: c}
	for _, rule := range r.Rules {
		if rule.Match(c, ctx) {
			sc.Score += rule.Weight
			sc.Matched = append(sc.Matched, rule.Name)
		}
	}
	return sc
}

// RankAndFilter scores candidates, drops those under the minimum score and
// sorts the rest by score, highest first. Ties keep generation order.
func (r Ranker) RankAndFilter(cands []Candidate, ctx Context) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		sc := r.Score(c, ctx)
		if sc.Score < r.MinScore {
			continue
		}
		out = append(out, sc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// RankAndFilter ranks with DefaultRanker.
func RankAndFilter(cands []Candidate, ctx Context) []ScoredCandidate {
	return DefaultRanker.RankAndFilter(cands, ctx)
}
