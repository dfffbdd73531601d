// Package observation tracks production prediction outcomes and computes
// online validation metrics over a recent window.
//
// Ground truth for fraud predictions arrives late (chargebacks, manual
// review), so outcomes are stored with a NULL actual label and resolved
// when feedback lands. Window metrics only count resolved outcomes.
package observation

import (
	"fmt"
	"time"
)

// Outcome is one production prediction and, once known, its true label
type Outcome struct {
	ID         int64     `json:"id"`
	Model      string    `json:"model"`
	RequestID  string    `json:"request_id"`
	Predicted  int       `json:"predicted"`
	Actual     *int      `json:"actual,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Validate checks label ranges; labels are binary
func (o Outcome) Validate() error {
	if o.Model == "" {
		return fmt.Errorf("model is required")
	}
	if o.Predicted != 0 && o.Predicted != 1 {
		return fmt.Errorf("predicted must be 0 or 1, got %d", o.Predicted)
	}
	if o.Actual != nil && *o.Actual != 0 && *o.Actual != 1 {
		return fmt.Errorf("actual must be 0 or 1, got %d", *o.Actual)
	}
	return nil
}

// ConfusionCounts aggregates resolved outcomes in a window
type ConfusionCounts struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
	TrueNegatives  int `json:"true_negatives"`
}

// Total returns the number of resolved outcomes counted
func (c ConfusionCounts) Total() int {
	return c.TruePositives + c.FalsePositives + c.FalseNegatives + c.TrueNegatives
}

// Precision returns TP/(TP+FP), 0 when the model made no positive predictions
func (c ConfusionCounts) Precision() float64 {
	denom := c.TruePositives + c.FalsePositives
	if denom == 0 {
		return 0
	}
	return float64(c.TruePositives) / float64(denom)
}

// Recall returns TP/(TP+FN), 0 when the window had no actual positives
func (c ConfusionCounts) Recall() float64 {
	denom := c.TruePositives + c.FalseNegatives
	if denom == 0 {
		return 0
	}
	return float64(c.TruePositives) / float64(denom)
}

// WindowReport is the health view of one model over the lookback window
type WindowReport struct {
	Model           string          `json:"model"`
	WindowMinutes   int             `json:"window_minutes"`
	Counts          ConfusionCounts `json:"counts"`
	Precision       float64         `json:"precision"`
	Recall          float64         `json:"recall"`
	SampleCount     int             `json:"sample_count"`
	PendingCount    int             `json:"pending_count"`
	PrecisionMean   float64         `json:"precision_mean"`    // mean of per-bucket precision
	PrecisionStdDev float64         `json:"precision_std_dev"` // spread across buckets, high = flapping
	Healthy         bool            `json:"healthy"`
	Violations      []string        `json:"violations,omitempty"`
}
