package scheduler

import (
	"time"

	"github.com/rs/zerolog"
)

// OutcomePurger deletes outcomes observed before a cutoff
type OutcomePurger interface {
	PurgeOlderThan(cutoff time.Time) (int64, error)
}

// OutcomeRetentionJob trims old production outcomes. The gate only ever
// looks back one window, so anything older than the retention horizon is
// dead weight in observation.db.
type OutcomeRetentionJob struct {
	purger    OutcomePurger
	retention time.Duration
	log       zerolog.Logger
}

// NewOutcomeRetentionJob creates a new retention job
func NewOutcomeRetentionJob(purger OutcomePurger, retention time.Duration, log zerolog.Logger) *OutcomeRetentionJob {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &OutcomeRetentionJob{
		purger:    purger,
		retention: retention,
		log:       log.With().Str("job", "outcome_retention").Logger(),
	}
}

// Run deletes outcomes past the retention horizon
func (j *OutcomeRetentionJob) Run() error {
	purged, err := j.purger.PurgeOlderThan(time.Now().Add(-j.retention))
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to purge old outcomes")
		return err
	}
	if purged > 0 {
		j.log.Info().Int64("purged", purged).Msg("Old outcomes purged")
	}
	return nil
}

// Name returns the job name for scheduling and logging
func (j *OutcomeRetentionJob) Name() string {
	return "outcome_retention"
}
