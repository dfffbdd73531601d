package gate

import "errors"

// ErrInvalidMetrics indicates a metric was outside the closed interval [0,1].
// Values outside this range mean the upstream evaluation step miscomputed;
// they are rejected before the decision rule runs, never clamped or coerced.
var ErrInvalidMetrics = errors.New("invalid model metrics")

// ErrZeroBaselineRecall indicates the baseline recall is zero, making the
// relative recall improvement undefined. The gate refuses to divide rather
// than guessing at an interpretation.
var ErrZeroBaselineRecall = errors.New("baseline recall is zero, recall improvement undefined")

// ModelMetrics is an immutable summary of one trained model's offline
// evaluation on the shared holdout set.
type ModelMetrics struct {
	Version     string  `json:"version"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	F1          float64 `json:"f1,omitempty"`           // informational, not used by the rule
	AUC         float64 `json:"auc,omitempty"`          // informational, not used by the rule
	SampleCount int     `json:"sample_count,omitempty"` // informational, not used by the rule
}

// PromotionDecision is the output of the gate
type PromotionDecision struct {
	Passed            bool    `json:"passed"`
	RecallImprovement float64 `json:"recall_improvement"` // signed relative change vs baseline
	PrecisionOK       bool    `json:"precision_ok"`
	Reason            string  `json:"reason"`
}

// Status returns the decision as the wire-level status string consumed by
// downstream deployment tooling ("passed" or "failed").
func (d PromotionDecision) Status() string {
	if d.Passed {
		return "passed"
	}
	return "failed"
}
