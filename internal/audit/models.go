package audit

import "time"

// Record is one audit entry per dispatched moderation action, keyed by the
// submission fingerprint so webhook replays update rather than duplicate.
type Record struct {
	Fingerprint     string    `json:"fingerprint"`
	SubmissionID    string    `json:"submission_id"`
	Action          string    `json:"action"`
	Category        string    `json:"category"`
	IsSpam          bool      `json:"is_spam"`
	Confidence      float64   `json:"confidence"`
	RiskLevel       string    `json:"risk_level"`
	RawScore        float64   `json:"raw_score"`
	ThresholdUsed   float64   `json:"threshold_used"`
	SensitivityUsed int       `json:"sensitivity_used"`
	Source          string    `json:"source"`
	Reasons         []string  `json:"reasons"`
	Links           []string  `json:"links,omitempty"`
	OriginIP        string    `json:"origin_ip,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Filter narrows a decision listing. Zero values mean "no constraint".
type Filter struct {
	Category string
	Source   string
	Action   string
	Since    time.Time
	Limit    int
}

// Stats are the aggregate counters shown on the dashboard.
type Stats struct {
	TotalChecked  int64 `json:"total_checked"`
	SpamCount     int64 `json:"spam_count"`
	BlockedCount  int64 `json:"blocked_count"`
	FallbackCount int64 `json:"fallback_count"`
}
