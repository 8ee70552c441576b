// Package policy maps a raw spam score and the operator's sensitivity dial
// to the final spam decision. Pure and deterministic: the same score and
// sensitivity always yield the same decision.
package policy

import "math"

// RiskLevel buckets the absolute score magnitude.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Category is the binary classification outcome.
type Category string

const (
	CategorySpam Category = "spam"
	CategoryHam  Category = "ham"
)

const (
	// DefaultSensitivity is the midpoint of the dial, yielding the base threshold.
	DefaultSensitivity = 50
	baseThreshold      = 50.0
	// sensitivitySlope half-weights the dial around its midpoint, so the
	// full 0–100 range only moves the threshold between 25 and 75.
	sensitivitySlope = 0.5

	riskHighCutoff   = 80.0
	riskMediumCutoff = 50.0
)

// Decision is the normalized, policy-applied outcome. Never mutated after
// creation.
type Decision struct {
	IsSpam          bool      `json:"is_spam"`
	Confidence      float64   `json:"confidence"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ThresholdUsed   float64   `json:"threshold_used"`
	SensitivityUsed int       `json:"sensitivity_used"`
	Category        Category  `json:"category"`
}

// Threshold computes the effective spam threshold for a sensitivity value.
// The dial shifts the threshold linearly around the midpoint; the slope keeps
// the full swing between 25 and 75.
func Threshold(sensitivity int) float64 {
	return baseThreshold + float64(ClampSensitivity(sensitivity)-DefaultSensitivity)*sensitivitySlope
}

// ClampSensitivity confines the dial to [0,100]. Out-of-range values come
// from misconfiguration and are corrected silently, never treated as fatal.
func ClampSensitivity(sensitivity int) int {
	if sensitivity < 0 {
		return 0
	}
	if sensitivity > 100 {
		return 100
	}
	return sensitivity
}

// Decide applies the threshold, confidence, and risk rules to a raw score.
//
// Risk level reflects absolute score magnitude, independent of the
// sensitivity-adjusted threshold. Under a raised threshold a submission can
// be high risk yet not spam; operators see magnitude and verdict as
// separate facts.
func Decide(rawScore float64, sensitivity int) Decision {
	sensitivity = ClampSensitivity(sensitivity)
	threshold := Threshold(sensitivity)

	// Strictly greater: a score landing exactly on the threshold is ham.
	isSpam := rawScore > threshold

	risk := RiskLow
	switch {
	case rawScore > riskHighCutoff:
		risk = RiskHigh
	case rawScore > riskMediumCutoff:
		risk = RiskMedium
	}

	category := CategoryHam
	if isSpam {
		category = CategorySpam
	}

	return Decision{
		IsSpam:          isSpam,
		Confidence:      math.Min(rawScore/100, 1.0),
		RiskLevel:       risk,
		ThresholdUsed:   threshold,
		SensitivityUsed: sensitivity,
		Category:        category,
	}
}
