package di

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/cachedata"
	"github.com/aristath/modelgate/internal/config"
	"github.com/aristath/modelgate/internal/reliability"
	"github.com/aristath/modelgate/internal/scheduler"
)

// outcomeRetention is how long resolved and unresolved outcomes are kept
// before the retention job purges them.
const outcomeRetention = 30 * 24 * time.Hour

// JobInstances holds all scheduled job instances so they can be registered
// with the scheduler and exposed for manual triggering.
type JobInstances struct {
	TrackerSync      *scheduler.TrackerSyncJob
	RampEvaluation   *scheduler.RampEvaluationJob
	CacheCleanup     *cachedata.CleanupJob
	OutcomeRetention *scheduler.OutcomeRetentionJob
	Backup           *reliability.BackupJob // nil when backups are disabled
}

// InitializeJobs creates job instances from container services
func InitializeJobs(container *Container, cfg *config.Config, log zerolog.Logger) *JobInstances {
	jobs := &JobInstances{
		TrackerSync: scheduler.NewTrackerSyncJob(
			container.TrackerClient,
			container.RegistryService,
			cfg.TrackerModel,
			container.EventBus,
			log,
		),
		RampEvaluation: scheduler.NewRampEvaluationJob(
			container.RolloutService,
			container.ObservationService,
			container.AuditRepo,
			log,
		),
		CacheCleanup:     cachedata.NewCleanupJob(container.CacheRepo, log),
		OutcomeRetention: scheduler.NewOutcomeRetentionJob(container.ObservationService, outcomeRetention, log),
	}

	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, container.EventBus, log)
	}

	return jobs
}

// RegisterSchedules adds every job to the scheduler with its cron schedule.
// All schedules use second-granularity cron expressions.
func (j *JobInstances) RegisterSchedules(sched *scheduler.Scheduler) error {
	schedules := []struct {
		spec string
		job  scheduler.Job
	}{
		{"0 */5 * * * *", j.TrackerSync},      // every 5 minutes
		{"30 */5 * * * *", j.RampEvaluation},  // every 5 minutes, offset from sync
		{"0 15 * * * *", j.CacheCleanup},      // hourly
		{"0 30 3 * * *", j.OutcomeRetention},  // daily at 03:30
	}
	if j.Backup != nil {
		schedules = append(schedules, struct {
			spec string
			job  scheduler.Job
		}{"0 0 2 * * *", j.Backup}) // daily at 02:00
	}

	for _, s := range schedules {
		if err := sched.AddJob(s.spec, s.job); err != nil {
			return err
		}
	}
	return nil
}
