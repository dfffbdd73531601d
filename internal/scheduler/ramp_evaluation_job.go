package scheduler

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/rollout"
)

// RampEvaluationJob drives active canary rollouts from observed production
// metrics. Each tick it checks the candidate's window health: a threshold
// breach triggers an automatic rollback, a healthy window attempts a gate
// evaluation to advance the ramp (a failed gate just holds the stage).
//
// Shadow-stage rollouts are left alone; their first promotion is judged on
// offline metrics and stays an operator decision.
type RampEvaluationJob struct {
	rolloutSvc     RolloutServiceInterface
	observationSvc ObservationServiceInterface
	auditor        AlertRecorder
	log            zerolog.Logger
}

// AlertRecorder persists alerts raised during ramp evaluation
type AlertRecorder interface {
	RecordAlert(model, reason string) error
}

// NewRampEvaluationJob creates a new ramp evaluation job
func NewRampEvaluationJob(
	rolloutSvc RolloutServiceInterface,
	observationSvc ObservationServiceInterface,
	auditor AlertRecorder,
	log zerolog.Logger,
) *RampEvaluationJob {
	return &RampEvaluationJob{
		rolloutSvc:     rolloutSvc,
		observationSvc: observationSvc,
		auditor:        auditor,
		log:            log.With().Str("job", "ramp_evaluation").Logger(),
	}
}

// Run evaluates the active rollout, if any
func (j *RampEvaluationJob) Run() error {
	ro, err := j.rolloutSvc.Current()
	if err != nil {
		return err
	}
	if ro == nil {
		j.log.Debug().Msg("No active rollout to evaluate")
		return nil
	}
	if ro.Stage == rollout.StageShadow {
		j.log.Debug().Str("rollout_id", ro.ID).Msg("Rollout in shadow stage, awaiting operator promotion")
		return nil
	}

	report, err := j.observationSvc.Health(ro.CandidateVersion)
	if err != nil {
		return fmt.Errorf("candidate health check: %w", err)
	}

	if !report.Healthy {
		// An empty window is inconclusive, not a breach; wait for traffic.
		if report.SampleCount == 0 {
			j.log.Info().
				Str("rollout_id", ro.ID).
				Str("candidate", ro.CandidateVersion).
				Msg("No resolved outcomes yet, holding canary stage")
			return nil
		}

		reason := fmt.Sprintf("observed metrics breached thresholds: %s", strings.Join(report.Violations, "; "))
		if auditErr := j.auditor.RecordAlert(ro.CandidateVersion, reason); auditErr != nil {
			j.log.Error().Err(auditErr).Msg("Failed to record alert to audit ledger")
		}

		if _, err := j.rolloutSvc.Rollback(reason); err != nil {
			return fmt.Errorf("automatic rollback: %w", err)
		}
		j.log.Warn().
			Str("rollout_id", ro.ID).
			Str("candidate", ro.CandidateVersion).
			Str("reason", reason).
			Msg("Canary rolled back automatically")
		return nil
	}

	_, decision, err := j.rolloutSvc.Advance()
	if err != nil {
		// Sparse observed windows for the baseline are expected right after
		// the split shifts traffic away from it; try again next tick.
		j.log.Info().Err(err).Str("rollout_id", ro.ID).Msg("Gate inputs unavailable, holding canary stage")
		return nil
	}

	if decision != nil && !decision.Passed {
		j.log.Info().
			Str("rollout_id", ro.ID).
			Str("reason", decision.Reason).
			Msg("Gate held canary at current stage")
	}
	return nil
}

// Name returns the job name for scheduling and logging
func (j *RampEvaluationJob) Name() string {
	return "ramp_evaluation"
}
