// Package gate implements the promotion decision gate for candidate models.
//
// The gate is a pure function: given offline (or observed production)
// metrics for the currently deployed baseline and a newly trained
// candidate, it decides whether the candidate is safe to promote. It has
// no side effects; recording the decision and acting on it are the
// caller's responsibility.
package gate

import "fmt"

// Policy holds the gate's decision thresholds.
// Thresholds are injected rather than read from globals so callers and
// tests can vary them; DefaultPolicy documents the production defaults.
type Policy struct {
	// MinRecallImprovement is the relative recall improvement the
	// candidate must achieve over the baseline (inclusive).
	MinRecallImprovement float64
	// PrecisionRetention is the fraction of baseline precision the
	// candidate must retain (inclusive). 0.95 allows a 5% relative drop.
	PrecisionRetention float64
}

// DefaultPolicy returns the production gate thresholds:
// recall must improve by at least 5% while retaining 95% of baseline precision.
func DefaultPolicy() Policy {
	return Policy{
		MinRecallImprovement: 0.05,
		PrecisionRetention:   0.95,
	}
}

// Evaluate applies the promotion rule to a baseline/candidate pair.
//
// Both models must have been scored on the same holdout split for the
// comparison to be meaningful; the gate does not (and cannot) verify this.
//
// The rule:
//
//	recall_improvement = (candidate.recall - baseline.recall) / baseline.recall
//	precision_ok       = candidate.precision >= baseline.precision * PrecisionRetention
//	passed             = recall_improvement >= MinRecallImprovement AND precision_ok
//
// Thresholds are inclusive. Metrics outside [0,1] and a zero baseline
// recall are rejected with an error before the rule is applied.
func (p Policy) Evaluate(baseline, candidate ModelMetrics) (PromotionDecision, error) {
	if err := validateMetrics("baseline", baseline); err != nil {
		return PromotionDecision{}, err
	}
	if err := validateMetrics("candidate", candidate); err != nil {
		return PromotionDecision{}, err
	}
	if baseline.Recall == 0 {
		return PromotionDecision{}, fmt.Errorf("baseline %q: %w", baseline.Version, ErrZeroBaselineRecall)
	}

	recallImprovement := (candidate.Recall - baseline.Recall) / baseline.Recall
	precisionFloor := baseline.Precision * p.PrecisionRetention
	precisionOK := candidate.Precision >= precisionFloor
	recallOK := recallImprovement >= p.MinRecallImprovement
	passed := recallOK && precisionOK

	decision := PromotionDecision{
		Passed:            passed,
		RecallImprovement: recallImprovement,
		PrecisionOK:       precisionOK,
	}
	decision.Reason = p.reason(recallOK, precisionOK, recallImprovement, candidate.Precision, precisionFloor)

	return decision, nil
}

// reason builds the human-readable explanation for the decision.
// Failed decisions state which criterion failed.
func (p Policy) reason(recallOK, precisionOK bool, recallImprovement, candidatePrecision, precisionFloor float64) string {
	switch {
	case recallOK && precisionOK:
		return fmt.Sprintf("recall improved %.2f%% (>= %.2f%%) with precision maintained",
			recallImprovement*100, p.MinRecallImprovement*100)
	case !recallOK && !precisionOK:
		return fmt.Sprintf("recall improvement %.2f%% below %.2f%% threshold and precision %.4f below retention floor %.4f",
			recallImprovement*100, p.MinRecallImprovement*100, candidatePrecision, precisionFloor)
	case !recallOK:
		return fmt.Sprintf("recall improvement %.2f%% below %.2f%% threshold",
			recallImprovement*100, p.MinRecallImprovement*100)
	default:
		return fmt.Sprintf("precision %.4f below retention floor %.4f",
			candidatePrecision, precisionFloor)
	}
}

// validateMetrics rejects metric values outside the closed interval [0,1].
func validateMetrics(role string, m ModelMetrics) error {
	if m.Precision < 0 || m.Precision > 1 {
		return fmt.Errorf("%s %q: precision %v out of range [0,1]: %w", role, m.Version, m.Precision, ErrInvalidMetrics)
	}
	if m.Recall < 0 || m.Recall > 1 {
		return fmt.Errorf("%s %q: recall %v out of range [0,1]: %w", role, m.Version, m.Recall, ErrInvalidMetrics)
	}
	return nil
}
