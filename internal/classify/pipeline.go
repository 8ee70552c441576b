// Package classify orchestrates the spam risk decision: remote classifier
// first, local heuristic scorer as the guaranteed fallback, one normalized
// outcome either way.
package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/quell-mod/quell-go/internal/heuristic"
	"github.com/quell-mod/quell-go/internal/policy"
	"github.com/quell-mod/quell-go/internal/submission"
)

// Config holds the orchestration knobs, read-only during a classification cycle.
type Config struct {
	// Sensitivity is the operator dial (0–100) shifting the spam threshold.
	Sensitivity int
	// RemoteTimeout bounds the remote classifier call. Once it expires the
	// pipeline falls back locally; a late remote answer is discarded.
	RemoteTimeout time.Duration
	// SkipRegistered exempts authenticated, already-trusted authors.
	SkipRegistered bool
}

// Pipeline runs the primary/fallback classification cascade.
type Pipeline struct {
	scorer *heuristic.Scorer
	remote Remote // nil disables the remote stage
	cfg    Config
	logger *slog.Logger
}

// NewPipeline wires the orchestrator. remote may be nil, in which case every
// submission is scored locally.
func NewPipeline(scorer *heuristic.Scorer, remote Remote, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 3 * time.Second
	}
	cfg.Sensitivity = policy.ClampSensitivity(cfg.Sensitivity)
	return &Pipeline{scorer: scorer, remote: remote, cfg: cfg, logger: logger}
}

// Config returns the effective orchestration settings.
func (p *Pipeline) Config() Config { return p.cfg }

// Classify produces one normalized outcome per submission. Remote transport
// trouble never escapes: every failure path resolves through the local
// scorer, which cannot fail.
func (p *Pipeline) Classify(ctx context.Context, sub submission.Submission) Outcome {
	if p.cfg.SkipRegistered && sub.Registered {
		return Outcome{
			Decision: policy.Decide(0, p.cfg.Sensitivity),
			Source:   SourceLocalFallback,
			Reasons:  []string{"registered author exempt from classification"},
		}
	}

	if p.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, p.cfg.RemoteTimeout)
		payload, err := p.remote.Classify(rctx, sub)
		cancel()
		switch {
		case err != nil:
			p.logger.Warn("remote classifier unavailable, falling back",
				"classifier", p.remote.Name(), "err", err)
		case !payload.Usable():
			p.logger.Warn("remote payload carries neither decision nor score, falling back",
				"classifier", p.remote.Name())
		default:
			return p.fromRemote(payload)
		}
	}

	res := p.scorer.Score(sub)
	return Outcome{
		Decision: policy.Decide(res.RawScore, p.cfg.Sensitivity),
		Source:   SourceLocalFallback,
		RawScore: res.RawScore,
		Reasons:  defaultReason(res.Reasons),
	}
}

// fromRemote normalizes a usable remote payload. A server-side decision is
// trusted verbatim; a bare raw score runs through the local decision policy.
func (p *Pipeline) fromRemote(payload *RemotePayload) Outcome {
	if payload.IsSpam != nil && payload.Confidence != nil {
		conf := clamp01(*payload.Confidence)
		raw := conf * 100
		if payload.RawScore != nil {
			raw = *payload.RawScore
		}

		category := policy.CategoryHam
		if *payload.IsSpam {
			category = policy.CategorySpam
		}

		return Outcome{
			Decision: policy.Decision{
				IsSpam:          *payload.IsSpam,
				Confidence:      conf,
				RiskLevel:       riskLevel(payload.RiskLevel, raw),
				ThresholdUsed:   policy.Threshold(p.cfg.Sensitivity),
				SensitivityUsed: p.cfg.Sensitivity,
				Category:        category,
			},
			Source:   SourceRemote,
			RawScore: raw,
			Reasons:  defaultReason(payload.Reasons),
		}
	}

	raw := *payload.RawScore
	return Outcome{
		Decision: policy.Decide(raw, p.cfg.Sensitivity),
		Source:   SourceRemote,
		RawScore: raw,
		Reasons:  defaultReason(payload.Reasons),
	}
}

// riskLevel parses the remote risk tag, deriving one from the score when the
// tag is absent or unrecognized.
func riskLevel(tag string, raw float64) policy.RiskLevel {
	switch policy.RiskLevel(tag) {
	case policy.RiskLow, policy.RiskMedium, policy.RiskHigh:
		return policy.RiskLevel(tag)
	}
	return policy.Decide(raw, policy.DefaultSensitivity).RiskLevel
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
