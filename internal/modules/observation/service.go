package observation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/modules/gate"
)

// Thresholds are the online validation floors. A model whose observed
// window metrics fall below either floor is unhealthy and raises an alert.
type Thresholds struct {
	LookbackMinutes int
	MinPrecision    float64
	MinRecall       float64
}

// DefaultThresholds returns the standard online validation floors
func DefaultThresholds() Thresholds {
	return Thresholds{LookbackMinutes: 60, MinPrecision: 0.85, MinRecall: 0.75}
}

// trendBucket is the sub-window used for precision stability stats
const trendBucket = 10 * time.Minute

// Service computes online validation metrics from recorded outcomes
type Service struct {
	repo       *Repository
	eventBus   *events.Bus
	thresholds Thresholds
	log        zerolog.Logger
}

// NewService creates a new observation service
func NewService(repo *Repository, eventBus *events.Bus, thresholds Thresholds, log zerolog.Logger) *Service {
	if thresholds.LookbackMinutes <= 0 {
		thresholds.LookbackMinutes = 60
	}
	return &Service{
		repo:       repo,
		eventBus:   eventBus,
		thresholds: thresholds,
		log:        log.With().Str("service", "observation").Logger(),
	}
}

// Record stores a production prediction outcome
func (s *Service) Record(o Outcome) (int64, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	if o.ObservedAt.IsZero() {
		o.ObservedAt = time.Now()
	}
	return s.repo.InsertOutcome(o)
}

// Resolve attaches ground truth to pending outcomes for a request
func (s *Service) Resolve(requestID string, actual int) (int64, error) {
	if requestID == "" {
		return 0, fmt.Errorf("request_id is required")
	}
	if actual != 0 && actual != 1 {
		return 0, fmt.Errorf("actual must be 0 or 1, got %d", actual)
	}
	return s.repo.ResolveOutcome(requestID, actual)
}

// WindowGateMetrics computes gate inputs from outcomes observed in the
// window. Errors when no outcome in the window has resolved ground truth:
// a gate decision on an empty window would be meaningless.
func (s *Service) WindowGateMetrics(model string, window time.Duration) (gate.ModelMetrics, error) {
	counts, err := s.repo.WindowCounts(model, time.Now().Add(-window))
	if err != nil {
		return gate.ModelMetrics{}, err
	}
	if counts.Total() == 0 {
		return gate.ModelMetrics{}, fmt.Errorf("no resolved outcomes for %s in the last %s", model, window)
	}

	return gate.ModelMetrics{
		Version:     model,
		Precision:   counts.Precision(),
		Recall:      counts.Recall(),
		SampleCount: counts.Total(),
	}, nil
}

// Health evaluates a model's observed window against the validation floors.
// An unhealthy report raises an alert event; the ramp job uses it to decide
// rollbacks.
func (s *Service) Health(model string) (WindowReport, error) {
	window := time.Duration(s.thresholds.LookbackMinutes) * time.Minute
	since := time.Now().Add(-window)

	counts, err := s.repo.WindowCounts(model, since)
	if err != nil {
		return WindowReport{}, err
	}
	pending, err := s.repo.PendingCount(model)
	if err != nil {
		return WindowReport{}, err
	}

	report := WindowReport{
		Model:         model,
		WindowMinutes: s.thresholds.LookbackMinutes,
		Counts:        counts,
		Precision:     counts.Precision(),
		Recall:        counts.Recall(),
		SampleCount:   counts.Total(),
		PendingCount:  pending,
		Healthy:       true,
	}

	if buckets, err := s.repo.BucketPrecisions(model, since, trendBucket); err == nil && len(buckets) > 0 {
		report.PrecisionMean = stat.Mean(buckets, nil)
		if len(buckets) > 1 {
			report.PrecisionStdDev = stat.StdDev(buckets, nil)
		}
	}

	if report.SampleCount == 0 {
		report.Healthy = false
		report.Violations = append(report.Violations,
			fmt.Sprintf("no resolved outcomes in the last %d minutes", s.thresholds.LookbackMinutes))
		return report, nil
	}

	if report.Precision < s.thresholds.MinPrecision {
		report.Healthy = false
		report.Violations = append(report.Violations,
			fmt.Sprintf("precision %.4f below threshold %.2f", report.Precision, s.thresholds.MinPrecision))
		s.eventBus.EmitTyped("observation", &events.AlertRaisedData{
			Model:     model,
			Metric:    "precision",
			Value:     report.Precision,
			Threshold: s.thresholds.MinPrecision,
		})
	}
	if report.Recall < s.thresholds.MinRecall {
		report.Healthy = false
		report.Violations = append(report.Violations,
			fmt.Sprintf("recall %.4f below threshold %.2f", report.Recall, s.thresholds.MinRecall))
		s.eventBus.EmitTyped("observation", &events.AlertRaisedData{
			Model:     model,
			Metric:    "recall",
			Value:     report.Recall,
			Threshold: s.thresholds.MinRecall,
		})
	}

	if !report.Healthy {
		s.log.Warn().
			Str("model", model).
			Float64("precision", report.Precision).
			Float64("recall", report.Recall).
			Strs("violations", report.Violations).
			Msg("Observed metrics breached validation thresholds")
	}

	return report, nil
}

// PurgeOlderThan removes outcomes past their retention horizon
func (s *Service) PurgeOlderThan(cutoff time.Time) (int64, error) {
	return s.repo.PurgeOlderThan(cutoff)
}
