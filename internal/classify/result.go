package classify

import "github.com/quell-mod/quell-go/internal/policy"

// Source identifies which scoring path produced an outcome.
type Source string

const (
	// SourceRemote means the remote classification service answered in time.
	SourceRemote Source = "remote"
	// SourceLocalFallback means the local heuristic scorer decided, either
	// because the remote was unavailable or classification was skipped.
	SourceLocalFallback Source = "local_fallback"
)

// Outcome is the normalized classification result handed to the dispatcher.
// The embedded decision is policy-applied; source, score, and reasons are
// carried alongside for audit and explanation.
type Outcome struct {
	policy.Decision

	Source   Source   `json:"source"`
	RawScore float64  `json:"raw_score"`
	Reasons  []string `json:"reasons"`
}

// RemotePayload is the wire shape a remote classifier returns: either a
// precomputed decision (IsSpam + Confidence set, trusted verbatim) or a bare
// raw score for the local decision policy to interpret.
type RemotePayload struct {
	IsSpam     *bool    `json:"is_spam,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	RiskLevel  string   `json:"risk_level,omitempty"`
	RawScore   *float64 `json:"score,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Usable reports whether the payload carries enough to act on: a full
// precomputed decision or a bare raw score. The orchestrator treats anything
// less as a remote failure.
func (p *RemotePayload) Usable() bool {
	if p == nil {
		return false
	}
	return (p.IsSpam != nil && p.Confidence != nil) || p.RawScore != nil
}

// defaultReason substitutes the documented placeholder when a scoring path
// produced no explanations.
func defaultReason(reasons []string) []string {
	if len(reasons) == 0 {
		return []string{"no indicators detected"}
	}
	return reasons
}
