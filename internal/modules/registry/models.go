package registry

import (
	"time"

	"github.com/aristath/modelgate/internal/modules/gate"
)

// ModelVersion represents a registered model version
type ModelVersion struct {
	Version     string    `json:"version"`      // e.g. "v1", "v2"
	DisplayName string    `json:"display_name"` // e.g. "fraud-detection-v2"
	StorageURI  string    `json:"storage_uri"`  // s3://bucket/path to the model artifact
	CreatedAt   time.Time `json:"created_at"`
}

// MetricsRecord is one offline evaluation of a model version.
// Records are produced once per training run and immutable afterward;
// the newest record per version is the authoritative offline evaluation.
type MetricsRecord struct {
	ID          int64     `json:"id"`
	Version     string    `json:"version"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	F1          float64   `json:"f1,omitempty"`
	AUC         float64   `json:"auc,omitempty"`
	SampleCount int       `json:"sample_count,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// ToGateMetrics converts a stored record to the gate's input value
func (r MetricsRecord) ToGateMetrics() gate.ModelMetrics {
	return gate.ModelMetrics{
		Version:     r.Version,
		Precision:   r.Precision,
		Recall:      r.Recall,
		F1:          r.F1,
		AUC:         r.AUC,
		SampleCount: r.SampleCount,
	}
}
