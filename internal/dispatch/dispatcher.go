// Package dispatch turns a classification outcome into exactly one
// moderation action per submission and records it in the audit store.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quell-mod/quell-go/internal/audit"
	"github.com/quell-mod/quell-go/internal/classify"
	"github.com/quell-mod/quell-go/internal/policy"
	"github.com/quell-mod/quell-go/internal/submission"
)

// Kind is the closed set of moderation outcomes.
type Kind string

const (
	// KindAllow lets the submission persist untouched.
	KindAllow Kind = "allow"
	// KindMarkSpam lets the submission persist but flagged into the caller's
	// moderation queue.
	KindMarkSpam Kind = "mark_spam"
	// KindHardBlock vetoes persistence and returns a block payload for the
	// caller to render.
	KindHardBlock Kind = "hard_block"
)

// maxBlockReasons caps how many signal explanations the user-facing block
// payload exposes.
const maxBlockReasons = 3

// Action is the dispatcher's output: the chosen outcome plus the audit
// record key it was written under.
type Action struct {
	Kind        Kind              `json:"kind"`
	Fingerprint string            `json:"fingerprint"`
	Outcome     classify.Outcome  `json:"decision"`
	BlockPage   *BlockPayload     `json:"block_page,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// BlockPayload is the structured explanation handed to the caller when a
// submission is hard-blocked. Presentation belongs to the caller.
type BlockPayload struct {
	Message           string           `json:"message"`
	ConfidencePercent int              `json:"confidence_percent"`
	RiskLevel         policy.RiskLevel `json:"risk_level"`
	Reasons           []string         `json:"reasons"`
}

// Hook lets the hosting system participate in the dispatch synchronously:
// BeforePersist runs before the action is final and may veto by returning an
// error; AfterPersist runs once the audit record is written.
type Hook interface {
	BeforePersist(ctx context.Context, sub submission.Submission, action *Action) error
	AfterPersist(ctx context.Context, sub submission.Submission, action *Action)
}

// Dispatcher applies the moderation policy outcome. It holds no per-request
// state; concurrent dispatches for distinct submissions are independent.
type Dispatcher struct {
	store      audit.Store
	hook       Hook // optional
	autoDelete bool
	logger     *slog.Logger
}

// NewDispatcher wires the dispatcher. hook may be nil; autoDelete selects
// hard_block over mark_spam for spam verdicts.
func NewDispatcher(store audit.Store, hook Hook, autoDelete bool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, hook: hook, autoDelete: autoDelete, logger: logger}
}

// Dispatch selects and records exactly one action for the submission. The
// audit write is an upsert keyed by the submission fingerprint, so a retried
// webhook lands on the same record instead of double-logging.
func (d *Dispatcher) Dispatch(ctx context.Context, sub submission.Submission, out classify.Outcome) (*Action, error) {
	action := &Action{
		Kind:        KindAllow,
		Fingerprint: sub.Fingerprint(),
		Outcome:     out,
		Timestamp:   time.Now().UTC(),
	}

	if out.IsSpam {
		if d.autoDelete {
			action.Kind = KindHardBlock
			action.BlockPage = buildBlockPayload(out)
		} else {
			action.Kind = KindMarkSpam
		}
	}

	if d.hook != nil {
		if err := d.hook.BeforePersist(ctx, sub, action); err != nil {
			return nil, fmt.Errorf("dispatch: before-persist hook: %w", err)
		}
	}

	if err := d.store.UpsertDecision(ctx, recordFor(sub, action)); err != nil {
		return nil, fmt.Errorf("dispatch: audit write: %w", err)
	}

	d.logger.Info("moderation action dispatched",
		"fingerprint", action.Fingerprint,
		"action", action.Kind,
		"category", out.Category,
		"risk", out.RiskLevel,
		"source", out.Source,
		"confidence", out.Confidence,
	)

	if d.hook != nil {
		d.hook.AfterPersist(ctx, sub, action)
	}
	return action, nil
}

// buildBlockPayload assembles the user-facing explanation: confidence as a
// percentage, the risk tier, and at most the first three reasons.
func buildBlockPayload(out classify.Outcome) *BlockPayload {
	reasons := out.Reasons
	if len(reasons) > maxBlockReasons {
		reasons = reasons[:maxBlockReasons]
	}
	return &BlockPayload{
		Message:           "Your comment was blocked by the spam filter.",
		ConfidencePercent: int(out.Confidence * 100),
		RiskLevel:         out.RiskLevel,
		Reasons:           reasons,
	}
}

func recordFor(sub submission.Submission, action *Action) *audit.Record {
	out := action.Outcome
	return &audit.Record{
		Fingerprint:     action.Fingerprint,
		SubmissionID:    sub.ID,
		Action:          string(action.Kind),
		Category:        string(out.Category),
		IsSpam:          out.IsSpam,
		Confidence:      out.Confidence,
		RiskLevel:       string(out.RiskLevel),
		RawScore:        out.RawScore,
		ThresholdUsed:   out.ThresholdUsed,
		SensitivityUsed: out.SensitivityUsed,
		Source:          string(out.Source),
		Reasons:         out.Reasons,
		Links:           submission.ExtractLinks(sub.Content),
		OriginIP:        sub.OriginIP,
		CreatedAt:       action.Timestamp,
	}
}
