package rollout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/modules/gate"
)

// OfflineMetricsSource provides the latest holdout evaluation per model
// version (the registry).
type OfflineMetricsSource interface {
	LatestGateMetrics(version string) (gate.ModelMetrics, error)
}

// ObservedMetricsSource provides production metrics computed over a recent
// window (the observation module).
type ObservedMetricsSource interface {
	WindowGateMetrics(model string, window time.Duration) (gate.ModelMetrics, error)
}

// Auditor records decisions and transitions to the audit ledger
type Auditor interface {
	RecordDecision(baseline, candidate string, decision gate.PromotionDecision) error
	RecordTransition(ro Rollout, from, to Stage, reason string) error
}

// Service drives rollouts along the promotion ramp.
//
// Shadow rollouts advance on offline holdout metrics; canary rollouts
// advance on metrics observed from production traffic at the current
// split. All transitions are audited and emitted as events.
type Service struct {
	repo     *Repository
	ramp     Ramp
	policy   gate.Policy
	offline  OfflineMetricsSource
	observed ObservedMetricsSource
	auditor  Auditor
	eventBus *events.Bus
	window   time.Duration // observation lookback for canary evaluations
	log      zerolog.Logger
}

// Config holds rollout service dependencies
type Config struct {
	Repo     *Repository
	Ramp     Ramp
	Policy   gate.Policy
	Offline  OfflineMetricsSource
	Observed ObservedMetricsSource
	Auditor  Auditor
	EventBus *events.Bus
	Window   time.Duration
	Log      zerolog.Logger
}

// NewService creates a new rollout service
func NewService(cfg Config) *Service {
	window := cfg.Window
	if window == 0 {
		window = time.Hour
	}
	return &Service{
		repo:     cfg.Repo,
		ramp:     cfg.Ramp,
		policy:   cfg.Policy,
		offline:  cfg.Offline,
		observed: cfg.Observed,
		auditor:  cfg.Auditor,
		eventBus: cfg.EventBus,
		window:   window,
		log:      cfg.Log.With().Str("service", "rollout").Logger(),
	}
}

// Current returns the active rollout, nil if none
func (s *Service) Current() (*Rollout, error) {
	return s.repo.GetActive()
}

// Get returns a rollout by id, nil if absent
func (s *Service) Get(id string) (*Rollout, error) {
	return s.repo.Get(id)
}

// List returns recent rollouts, newest first
func (s *Service) List(limit int) ([]Rollout, error) {
	return s.repo.List(limit)
}

// Start begins a new rollout in the shadow stage.
// Only one rollout may be active at a time; the serving layer keeps 100%
// of traffic on the baseline until the first gate pass.
func (s *Service) Start(baselineVersion, candidateVersion string) (*Rollout, error) {
	if baselineVersion == "" || candidateVersion == "" {
		return nil, fmt.Errorf("baseline and candidate versions are required")
	}
	if baselineVersion == candidateVersion {
		return nil, fmt.Errorf("baseline and candidate must be different versions")
	}

	active, err := s.repo.GetActive()
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("rollout %s is already active (stage %s)", active.ID, active.Stage)
	}

	now := time.Now()
	ro := Rollout{
		ID:               uuid.New().String(),
		BaselineVersion:  baselineVersion,
		CandidateVersion: candidateVersion,
		Stage:            StageShadow,
		Split:            AllBaseline(),
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ro); err != nil {
		return nil, err
	}

	s.eventBus.Emit(events.RolloutStarted, "rollout", map[string]interface{}{
		"rollout_id":        ro.ID,
		"baseline_version":  baselineVersion,
		"candidate_version": candidateVersion,
	})

	s.log.Info().
		Str("rollout_id", ro.ID).
		Str("baseline", baselineVersion).
		Str("candidate", candidateVersion).
		Msg("Rollout started in shadow stage")
	return &ro, nil
}

// Advance runs the gate against fresh metrics for the active rollout and
// moves it one stage forward on a pass. A failed decision is a hold, not
// an error: the rollout stays at its current stage and the decision is
// returned for the caller to report.
//
// Shadow stages are judged on offline holdout metrics from the registry;
// canary stages on production metrics observed over the lookback window.
func (s *Service) Advance() (*Rollout, *gate.PromotionDecision, error) {
	ro, err := s.repo.GetActive()
	if err != nil {
		return nil, nil, err
	}
	if ro == nil {
		return nil, nil, fmt.Errorf("no active rollout")
	}
	if ro.Stage.Terminal() {
		return ro, nil, fmt.Errorf("rollout %s is at terminal stage %s", ro.ID, ro.Stage)
	}

	baseline, candidate, err := s.gateInputs(ro)
	if err != nil {
		return ro, nil, err
	}

	decision, err := s.policy.Evaluate(baseline, candidate)
	if err != nil {
		return ro, nil, fmt.Errorf("gate evaluation failed: %w", err)
	}

	if auditErr := s.auditor.RecordDecision(ro.BaselineVersion, ro.CandidateVersion, decision); auditErr != nil {
		// The decision stands even if the ledger write fails; log loudly.
		s.log.Error().Err(auditErr).Msg("Failed to record gate decision to audit ledger")
	}

	s.eventBus.EmitTyped("rollout", &events.GateEvaluatedData{
		BaselineVersion:   ro.BaselineVersion,
		CandidateVersion:  ro.CandidateVersion,
		Passed:            decision.Passed,
		RecallImprovement: decision.RecallImprovement,
		PrecisionOK:       decision.PrecisionOK,
		Reason:            decision.Reason,
	})

	if !decision.Passed {
		s.log.Info().
			Str("rollout_id", ro.ID).
			Str("stage", string(ro.Stage)).
			Str("reason", decision.Reason).
			Msg("Gate failed, holding current stage")
		return ro, &decision, nil
	}

	next, err := s.ramp.Next(ro.Stage)
	if err != nil {
		return ro, &decision, err
	}
	split, err := s.ramp.SplitFor(next)
	if err != nil {
		return ro, &decision, err
	}

	from := ro.Stage
	ro.Stage = next
	ro.Split = split
	if next == StageFull {
		ro.Active = false // ramp complete
	}
	ro.UpdatedAt = time.Now()

	if err := s.repo.Update(*ro); err != nil {
		return ro, &decision, err
	}

	if auditErr := s.auditor.RecordTransition(*ro, from, next, decision.Reason); auditErr != nil {
		s.log.Error().Err(auditErr).Msg("Failed to record stage transition to audit ledger")
	}

	s.eventBus.EmitTyped("rollout", &events.StageAdvancedData{
		RolloutID:        ro.ID,
		From:             string(from),
		To:               string(next),
		BaselineWeight:   split.BaselineWeight,
		CandidateWeight:  split.CandidateWeight,
		CandidateVersion: ro.CandidateVersion,
	})

	s.log.Info().
		Str("rollout_id", ro.ID).
		Str("from", string(from)).
		Str("to", string(next)).
		Int("baseline_weight", split.BaselineWeight).
		Int("candidate_weight", split.CandidateWeight).
		Msg("Rollout advanced")
	return ro, &decision, nil
}

// Rollback aborts the active rollout and returns all traffic to baseline
func (s *Service) Rollback(reason string) (*Rollout, error) {
	ro, err := s.repo.GetActive()
	if err != nil {
		return nil, err
	}
	if ro == nil {
		return nil, fmt.Errorf("no active rollout")
	}

	from := ro.Stage
	ro.Stage = StageRolledBack
	ro.Split = AllBaseline()
	ro.Active = false
	ro.UpdatedAt = time.Now()

	if err := s.repo.Update(*ro); err != nil {
		return nil, err
	}

	if auditErr := s.auditor.RecordTransition(*ro, from, StageRolledBack, reason); auditErr != nil {
		s.log.Error().Err(auditErr).Msg("Failed to record rollback to audit ledger")
	}

	s.eventBus.EmitTyped("rollout", &events.RollbackTriggeredData{
		RolloutID: ro.ID,
		From:      string(from),
		Reason:    reason,
	})

	s.log.Warn().
		Str("rollout_id", ro.ID).
		Str("from", string(from)).
		Str("reason", reason).
		Msg("Rollout rolled back")
	return ro, nil
}

// gateInputs selects the metrics source for the rollout's current stage
func (s *Service) gateInputs(ro *Rollout) (baseline, candidate gate.ModelMetrics, err error) {
	if ro.Stage == StageShadow {
		baseline, err = s.offline.LatestGateMetrics(ro.BaselineVersion)
		if err != nil {
			return baseline, candidate, fmt.Errorf("baseline offline metrics: %w", err)
		}
		candidate, err = s.offline.LatestGateMetrics(ro.CandidateVersion)
		if err != nil {
			return baseline, candidate, fmt.Errorf("candidate offline metrics: %w", err)
		}
		return baseline, candidate, nil
	}

	baseline, err = s.observed.WindowGateMetrics(ro.BaselineVersion, s.window)
	if err != nil {
		return baseline, candidate, fmt.Errorf("baseline observed metrics: %w", err)
	}
	candidate, err = s.observed.WindowGateMetrics(ro.CandidateVersion, s.window)
	if err != nil {
		return baseline, candidate, fmt.Errorf("candidate observed metrics: %w", err)
	}
	return baseline, candidate, nil
}
