package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/events"
)

// BackupJob runs the nightly backup and rotation cycle
type BackupJob struct {
	service       *BackupService
	retentionDays int
	eventBus      *events.Bus
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, eventBus *events.Bus, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		eventBus:      eventBus,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Run creates a backup, uploads it, and rotates old archives
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		// The backup itself succeeded; rotation failure is not fatal
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}

	j.eventBus.Emit(events.BackupCompleted, "reliability", map[string]interface{}{
		"retention_days": j.retentionDays,
	})
	return nil
}

// Name returns the job name for scheduling and logging
func (j *BackupJob) Name() string {
	return "backup"
}
