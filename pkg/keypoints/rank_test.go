package keypoints

import (
	"strings"
	"testing"
)

func ruleByName(t *testing.T, name string) Rule {
	t.Helper()
	for _, r := range Rules {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("rule %q not found", name)
	return Rule{}
}

func TestRules_Individually(t *testing.T) {
	tests := []struct {
		rule  string
		cand  Candidate
		ctx   Context
		match bool
	}{
		{"length>=100", Candidate{Text: strings.Repeat("x", 100)}, Context{}, true},
		{"length>=100", Candidate{Text: strings.Repeat("x", 99)}, Context{}, false},
		{"length>=150", Candidate{Text: strings.Repeat("x", 150)}, Context{}, true},
		{"length>=150", Candidate{Text: strings.Repeat("x", 149)}, Context{}, false},
		{"strong-keyword", Candidate{Text: "The key point here is conservation."}, Context{}, true},
		{"strong-keyword", Candidate{Text: "It is essential to balance both sides."}, Context{}, true},
		{"strong-keyword", Candidate{Text: "Water boils at one hundred degrees."}, Context{}, false},
		{"definition", Candidate{Text: "Velocity refers to speed with direction."}, Context{}, true},
		{"definition", Candidate{Text: "Atoms are tiny."}, Context{}, true},
		{"definition", Candidate{Text: "Heat flows from hot to cold."}, Context{}, false},
		{"topic-relevant", Candidate{Text: "Limits describe behaviour near a point."}, Context{Topic: "limits and continuity"}, true},
		{"topic-relevant", Candidate{Text: "Atoms are tiny."}, Context{Topic: "limits and continuity"}, false},
		{"topic-relevant", Candidate{Text: "Atoms are tiny."}, Context{}, true},
		{"example-marker", Candidate{Text: "Metals such as copper conduct well."}, Context{}, true},
		{"example-marker", Candidate{Text: "Use a unit, e.g. metres."}, Context{}, true},
		{"example-marker", Candidate{Text: "Metals conduct well."}, Context{}, false},
		{"list-item", Candidate{Text: "anything", Pass: PassList}, Context{}, true},
		{"list-item", Candidate{Text: "anything", Pass: PassAnchored}, Context{}, false},
	}

	for _, tt := range tests {
		r := ruleByName(t, tt.rule)
		if got := r.Match(tt.cand, tt.ctx); got != tt.match {
			t.Errorf("%s on %q = %v, want %v", tt.rule, tt.cand.Text, got, tt.match)
		}
	}
}

func TestRanker_ScoreIsAdditive(t *testing.T) {
	text := "Remember that enzymes are proteins which speed up reactions, for example amylase breaks starch into sugar in the mouth during chewing and swallowing food."
	sc := DefaultRanker.Score(Candidate{Text: text, Pass: PassAnchored}, Context{})

	// length>=100 (2) + length>=150 (1) + strong (3) + definition (2) + relevant (2) + example (1)
	if sc.Score != 11 {
		t.Fatalf("score = %d (rules %v), want 11", sc.Score, sc.Matched)
	}
	if len(sc.Matched) != 6 {
		t.Errorf("matched rules = %v, want 6", sc.Matched)
	}
}

func TestRankAndFilter_BulletScores(t *testing.T) {
	cands := GenerateCandidates(calculusList, 0, Context{Topic: "calculus"})
	ranked := RankAndFilter(cands, Context{Topic: "calculus"})

	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(ranked))
	}
	if !strings.HasPrefix(ranked[0].Text, "Integration") || ranked[0].Score != 5 {
		t.Errorf("first = %q (%d), want integration bullet with score 5", ranked[0].Text, ranked[0].Score)
	}
	if !strings.HasPrefix(ranked[1].Text, "The derivative") || ranked[1].Score != 3 {
		t.Errorf("second = %q (%d), want derivative bullet with score 3", ranked[1].Text, ranked[1].Score)
	}
}

func TestRankAndFilter_DropsLowScores(t *testing.T) {
	ctx := Context{Topic: "astronomy"}
	cands := []Candidate{
		{Text: "Heat flows from hot to cold objects.", Pass: PassFallback},
		{Text: "It is crucial to check units.", Pass: PassAnchored},
	}

	ranked := RankAndFilter(cands, ctx)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 survivor, got %d: %v", len(ranked), ranked)
	}
	if ranked[0].Text != cands[1].Text {
		t.Errorf("survivor = %q, want %q", ranked[0].Text, cands[1].Text)
	}
}

func TestRankAndFilter_SortedDescendingAndStable(t *testing.T) {
	ranker := Ranker{
		Rules: []Rule{
			{Name: "a", Weight: 3, Match: func(c Candidate, _ Context) bool { return strings.Contains(c.Text, "a") }},
			{Name: "b", Weight: 5, Match: func(c Candidate, _ Context) bool { return strings.Contains(c.Text, "b") }},
		},
		MinScore: 3,
	}

	ranked := ranker.RankAndFilter([]Candidate{
		{Text: "a1"}, {Text: "ab"}, {Text: "a2"}, {Text: "none"}, {Text: "b"},
	}, Context{})

	want := []string{"ab", "b", "a1", "a2"}
	if len(ranked) != len(want) {
		t.Fatalf("got %d ranked, want %d", len(ranked), len(want))
	}
	for i, w := range want {
		if ranked[i].Text != w {
			t.Errorf("rank %d = %q, want %q", i, ranked[i].Text, w)
		}
	}
}

// A list item passes the gate on its marker alone, even when nothing else in
// it scores. The same text as a plain sentence is dropped.
func TestRankAndFilter_ListMarkerAloneClearsGate(t *testing.T) {
	ctx := Context{Topic: "chemistry"}
	text := "The slide after this one has a blue border around the heading text."

	ranked := RankAndFilter([]Candidate{{Text: text, Pass: PassList}}, ctx)
	if len(ranked) != 1 {
		t.Fatalf("expected list item to survive, got %v", ranked)
	}
	if ranked[0].Score != MinScore || len(ranked[0].Matched) != 1 || ranked[0].Matched[0] != "list-item" {
		t.Errorf("score = %d (rules %v), want %d from list-item only", ranked[0].Score, ranked[0].Matched, MinScore)
	}

	if ranked := RankAndFilter([]Candidate{{Text: text, Pass: PassAnchored}}, ctx); len(ranked) != 0 {
		t.Errorf("expected plain sentence to be dropped, got %v", ranked)
	}
}
