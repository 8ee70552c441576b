// Package heuristic implements the local spam scoring engine: a pure,
// deterministic mapping from submission fields to an additive risk score
// with a human-readable reason per triggered signal. It is the guaranteed
// fallback when the remote classifier is unreachable, so it performs no I/O
// and never fails.
package heuristic

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/quell-mod/quell-go/internal/submission"
)

// Signal weights and tier cutoffs. These are fixed policy constants, not
// derived values; the sensitivity dial adjusts the decision threshold, never
// the weights.
const (
	honeypotScore     = 50
	tooFastScore      = 30
	keywordScore      = 15
	keywordCap        = 60
	linksHighScore    = 40
	linksMediumScore  = 25
	linksLowScore     = 10
	capsHighScore     = 30
	capsMediumScore   = 15
	exclaimHighScore  = 20
	exclaimLowScore   = 10
	disposableScore   = 40
	shortContentScore = 20
	longContentScore  = 15
	specialCharScore  = 15
	digitRunScore     = 20
	shortNameScore    = 15
)

// Result is the scorer's output: an unbounded additive score plus one
// explanation per triggered signal, in detection order.
type Result struct {
	RawScore float64  `json:"raw_score"`
	Reasons  []string `json:"reasons"`
}

// Config holds the scorer knobs that are operator-configurable.
type Config struct {
	// MinElapsedSeconds is the floor under which a measured submission time
	// counts as bot-fast.
	MinElapsedSeconds int
	// HoneypotEnabled gates the hidden-field signal; sites without a
	// honeypot input disable it to avoid false positives from form replays.
	HoneypotEnabled bool
}

// DefaultConfig returns the documented scorer defaults.
func DefaultConfig() Config {
	return Config{MinElapsedSeconds: 3, HoneypotEnabled: true}
}

// Scorer evaluates the heuristic signal set against a submission.
type Scorer struct {
	cfg Config
}

// NewScorer constructs a scorer. A zero MinElapsedSeconds falls back to the
// default so a partially filled Config stays safe.
func NewScorer(cfg Config) *Scorer {
	if cfg.MinElapsedSeconds <= 0 {
		cfg.MinElapsedSeconds = DefaultConfig().MinElapsedSeconds
	}
	return &Scorer{cfg: cfg}
}

// Score evaluates every signal independently and accumulates the weights.
// Missing or unknown fields score zero; they are never an error.
func (s *Scorer) Score(sub submission.Submission) Result {
	var res Result
	content := sub.Content
	lower := strings.ToLower(content)

	// 1. Honeypot — the strongest single bot indicator.
	if s.cfg.HoneypotEnabled && strings.TrimSpace(sub.Honeypot) != "" {
		res.add(honeypotScore, "Honeypot field was filled")
	}

	// 2. Submission speed, only when the intake form measured it.
	if sub.ElapsedSeconds != nil && *sub.ElapsedSeconds < s.cfg.MinElapsedSeconds {
		res.add(tooFastScore, fmt.Sprintf("Submitted in %ds (minimum %ds)",
			*sub.ElapsedSeconds, s.cfg.MinElapsedSeconds))
	}

	// 3. Keyword matches — one reason per distinct keyword, capped total.
	keywordTotal := 0.0
	for _, kw := range spamKeywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		if keywordTotal >= keywordCap {
			break
		}
		keywordTotal += keywordScore
		res.add(keywordScore, fmt.Sprintf("Contains spam keyword %q", kw))
	}

	// 4. Link density — highest applicable tier only.
	switch links := strings.Count(lower, "http"); {
	case links > 5:
		res.add(linksHighScore, fmt.Sprintf("Excessive links (%d)", links))
	case links > 3:
		res.add(linksMediumScore, fmt.Sprintf("Many links (%d)", links))
	case links > 1:
		res.add(linksLowScore, fmt.Sprintf("Multiple links (%d)", links))
	}

	// 5. Capitalization ratio over total content length.
	if length := len([]rune(content)); length > 0 {
		upper := 0
		for _, r := range content {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		switch ratio := float64(upper) / float64(length); {
		case ratio > 0.5:
			res.add(capsHighScore, fmt.Sprintf("Mostly uppercase content (%.0f%%)", ratio*100))
		case ratio > 0.3:
			res.add(capsMediumScore, fmt.Sprintf("Heavy uppercase content (%.0f%%)", ratio*100))
		}
	}

	// 6. Exclamation density.
	switch bangs := strings.Count(content, "!"); {
	case bangs > 5:
		res.add(exclaimHighScore, fmt.Sprintf("Excessive exclamation marks (%d)", bangs))
	case bangs > 3:
		res.add(exclaimLowScore, fmt.Sprintf("Many exclamation marks (%d)", bangs))
	}

	// 7. Disposable email domain — first match wins.
	emailLower := strings.ToLower(sub.AuthorEmail)
	for _, domain := range disposableDomains {
		if strings.Contains(emailLower, domain) {
			res.add(disposableScore, fmt.Sprintf("Disposable email domain %q", domain))
			break
		}
	}

	// 8. Content length extremes.
	switch length := len([]rune(content)); {
	case length < 10:
		res.add(shortContentScore, "Very short content")
	case length > 5000:
		res.add(longContentScore, "Very long content")
	}

	// 9. Special character count.
	if n := countSpecialChars(content); n > 30 {
		res.add(specialCharScore, fmt.Sprintf("High count of unusual characters (%d)", n))
	}

	// 10. Suspicious author name — both checks apply independently.
	if hasDigitRun(sub.AuthorName, 4) {
		res.add(digitRunScore, "Author name contains a long digit run")
	}
	if len([]rune(sub.AuthorName)) < 3 {
		res.add(shortNameScore, "Author name suspiciously short")
	}

	if len(res.Reasons) == 0 {
		res.Reasons = []string{"no indicators detected"}
	}
	return res
}

func (r *Result) add(score float64, reason string) {
	r.RawScore += score
	r.Reasons = append(r.Reasons, reason)
}

// countSpecialChars counts runes outside letters, digits, whitespace and
// basic sentence punctuation.
func countSpecialChars(content string) int {
	n := 0
	for _, r := range content {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		if strings.ContainsRune(`.,!?;:'"-_()/`, r) {
			continue
		}
		n++
	}
	return n
}

// hasDigitRun reports whether s contains a run of at least min consecutive digits.
func hasDigitRun(s string, min int) bool {
	run := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			run++
			if run >= min {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}
