package heuristic

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/quell-mod/quell-go/internal/submission"
)

func intPtr(n int) *int { return &n }

func benign() submission.Submission {
	return submission.Submission{
		Content:     "This comment is perfectly reasonable and polite.",
		AuthorName:  "Bob Smith",
		AuthorEmail: "bob@example.com",
		OriginIP:    "203.0.113.10",
		SubmittedAt: time.Unix(1700000000, 0),
	}
}

func TestScoreBenignContent(t *testing.T) {
	res := NewScorer(DefaultConfig()).Score(benign())
	if res.RawScore != 0 {
		t.Fatalf("expected zero score, got %v (%v)", res.RawScore, res.Reasons)
	}
	if !reflect.DeepEqual(res.Reasons, []string{"no indicators detected"}) {
		t.Fatalf("expected default reason, got %v", res.Reasons)
	}
}

func TestScoreHoneypot(t *testing.T) {
	sub := benign()
	sub.Honeypot = "filled by bot"

	res := NewScorer(DefaultConfig()).Score(sub)
	if res.RawScore != 50 {
		t.Fatalf("expected 50, got %v (%v)", res.RawScore, res.Reasons)
	}

	disabled := NewScorer(Config{MinElapsedSeconds: 3, HoneypotEnabled: false}).Score(sub)
	if disabled.RawScore != 0 {
		t.Fatalf("expected honeypot signal disabled, got %v", disabled.RawScore)
	}
}

func TestScoreSubmissionSpeed(t *testing.T) {
	sub := benign()
	sub.ElapsedSeconds = intPtr(2)
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 30 {
		t.Fatalf("expected 30 for too-fast submission, got %v", res.RawScore)
	}

	sub.ElapsedSeconds = intPtr(10)
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 0 {
		t.Fatalf("expected 0 for slow submission, got %v", res.RawScore)
	}

	// Absent measurement means the signal cannot fire.
	sub.ElapsedSeconds = nil
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 0 {
		t.Fatalf("expected 0 without elapsed measurement, got %v", res.RawScore)
	}
}

func TestScoreKeywordsCapped(t *testing.T) {
	sub := benign()
	sub.Content = "viagra cialis casino lottery jackpot offers all around"

	res := NewScorer(DefaultConfig()).Score(sub)
	if res.RawScore != 60 {
		t.Fatalf("expected keyword score capped at 60, got %v (%v)", res.RawScore, res.Reasons)
	}
	for _, reason := range res.Reasons {
		if !strings.Contains(reason, "spam keyword") {
			t.Fatalf("unexpected reason %q", reason)
		}
	}
}

func TestScoreLinkTiers(t *testing.T) {
	cases := []struct {
		links int
		want  float64
	}{
		{0, 0},
		{1, 0},
		{2, 10},
		{4, 25},
		{6, 40},
	}
	for _, tc := range cases {
		sub := benign()
		sub.Content = "check these out " + strings.Repeat("http://example.com/page ", tc.links)
		res := NewScorer(DefaultConfig()).Score(sub)
		if res.RawScore != tc.want {
			t.Fatalf("links=%d: expected %v, got %v (%v)", tc.links, tc.want, res.RawScore, res.Reasons)
		}
	}
}

func TestScoreCapitalization(t *testing.T) {
	sub := benign()
	sub.Content = "THIS ENTIRE COMMENT IS SHOUTED AT FULL VOLUME"
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 30 {
		t.Fatalf("expected 30 for mostly-uppercase content, got %v (%v)", res.RawScore, res.Reasons)
	}

	// Between 30% and 50% uppercase lands in the lower tier.
	sub.Content = "AAAAB bbbbb ccc"
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 15 {
		t.Fatalf("expected 15 for heavy-uppercase content, got %v (%v)", res.RawScore, res.Reasons)
	}
}

func TestScoreExclamations(t *testing.T) {
	sub := benign()
	sub.Content = "such a great product!!!! really works"
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 10 {
		t.Fatalf("expected 10 for four exclamations, got %v (%v)", res.RawScore, res.Reasons)
	}

	sub.Content = "amazing!! stunning!! unbelievable!! wow"
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 20 {
		t.Fatalf("expected 20 for six exclamations, got %v (%v)", res.RawScore, res.Reasons)
	}
}

func TestScoreDisposableEmail(t *testing.T) {
	sub := benign()
	sub.AuthorEmail = "throwaway@mailinator.com"
	res := NewScorer(DefaultConfig()).Score(sub)
	if res.RawScore != 40 {
		t.Fatalf("expected 40 for disposable domain, got %v (%v)", res.RawScore, res.Reasons)
	}
	if len(res.Reasons) != 1 {
		t.Fatalf("expected a single reason (stop at first match), got %v", res.Reasons)
	}
}

func TestScoreContentLength(t *testing.T) {
	sub := benign()
	sub.Content = "hi"
	res := NewScorer(DefaultConfig()).Score(sub)
	if res.RawScore != 20 {
		t.Fatalf("expected 20 for very short content, got %v (%v)", res.RawScore, res.Reasons)
	}

	sub.Content = strings.Repeat("a", 5001)
	res = NewScorer(DefaultConfig()).Score(sub)
	if res.RawScore != 15 {
		t.Fatalf("expected 15 for very long content, got %v (%v)", res.RawScore, res.Reasons)
	}
}

func TestScoreSpecialCharacters(t *testing.T) {
	sub := benign()
	sub.Content = "some ordinary words " + strings.Repeat("☆", 31)
	res := NewScorer(DefaultConfig()).Score(sub)
	if res.RawScore != 15 {
		t.Fatalf("expected 15 for unusual characters, got %v (%v)", res.RawScore, res.Reasons)
	}
}

func TestScoreAuthorName(t *testing.T) {
	sub := benign()
	sub.AuthorName = "user48291734"
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 20 {
		t.Fatalf("expected 20 for digit run, got %v (%v)", res.RawScore, res.Reasons)
	}

	sub.AuthorName = "ab"
	if res := NewScorer(DefaultConfig()).Score(sub); res.RawScore != 15 {
		t.Fatalf("expected 15 for short name, got %v (%v)", res.RawScore, res.Reasons)
	}
}

func TestScorePromotionalComment(t *testing.T) {
	sub := benign()
	sub.Content = "BUY VIAGRA NOW!!! HTTP://X.COM HTTP://Y.COM HTTP://Z.COM HTTP://W.COM"

	res := NewScorer(DefaultConfig()).Score(sub)
	// viagra keyword (15) + four links (25) + mostly-uppercase (30).
	if res.RawScore != 70 {
		t.Fatalf("expected 70, got %v (%v)", res.RawScore, res.Reasons)
	}
}

func TestScoreEmptyContentShortOnly(t *testing.T) {
	sub := submission.Submission{
		Content:        "",
		AuthorName:     "Bob",
		AuthorEmail:    "bob@example.com",
		SubmittedAt:    time.Unix(1700000000, 0),
		ElapsedSeconds: intPtr(10),
	}
	res := NewScorer(DefaultConfig()).Score(sub)
	if res.RawScore != 20 {
		t.Fatalf("expected 20, got %v (%v)", res.RawScore, res.Reasons)
	}
	if !reflect.DeepEqual(res.Reasons, []string{"Very short content"}) {
		t.Fatalf("expected only the short-content reason, got %v", res.Reasons)
	}
}

func TestScoreDeterministic(t *testing.T) {
	sub := benign()
	sub.Content = "viagra offers!!! http://a http://b"
	scorer := NewScorer(DefaultConfig())

	first := scorer.Score(sub)
	second := scorer.Score(sub)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scoring is not deterministic: %v vs %v", first, second)
	}
}

func TestScoreMonotonicity(t *testing.T) {
	scorer := NewScorer(DefaultConfig())

	one := benign()
	one.Content = "nothing to see except viagra mentions"
	two := one
	two.Content = one.Content + " and a casino"

	a := scorer.Score(one)
	b := scorer.Score(two)
	if b.RawScore < a.RawScore {
		t.Fatalf("more matched keywords lowered the score: %v -> %v", a.RawScore, b.RawScore)
	}
}
