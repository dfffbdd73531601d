package scheduler

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/modules/registry"
)

// TrackerSyncJob pulls the newest registered model version and its holdout
// evaluation from the experiment tracker into the local registry, so gate
// evaluations never depend on the tracker being up.
type TrackerSyncJob struct {
	trackerClient TrackerClientInterface
	registrySvc   RegistryServiceInterface
	modelName     string
	eventBus      *events.Bus
	log           zerolog.Logger
}

// NewTrackerSyncJob creates a new tracker sync job
func NewTrackerSyncJob(
	trackerClient TrackerClientInterface,
	registrySvc RegistryServiceInterface,
	modelName string,
	eventBus *events.Bus,
	log zerolog.Logger,
) *TrackerSyncJob {
	return &TrackerSyncJob{
		trackerClient: trackerClient,
		registrySvc:   registrySvc,
		modelName:     modelName,
		eventBus:      eventBus,
		log:           log.With().Str("job", "tracker_sync").Logger(),
	}
}

// Run fetches the latest version and metrics and records them locally
func (j *TrackerSyncJob) Run() error {
	info, err := j.trackerClient.GetLatestVersion(j.modelName)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to fetch latest model version from tracker")
		return err
	}
	if info == nil {
		j.log.Debug().Str("model", j.modelName).Msg("No versions registered in tracker")
		return nil
	}

	version := j.modelName + "-v" + info.Version
	if err := j.registrySvc.RegisterVersion(registry.ModelVersion{
		Version:     version,
		DisplayName: j.modelName,
		StorageURI:  info.Source,
		CreatedAt:   time.Now(),
	}); err != nil {
		// A tracker source that isn't s3:// is a pipeline misconfiguration,
		// not a sync failure worth retry noise.
		if strings.Contains(err.Error(), "storage URI") {
			j.log.Warn().Err(err).Str("source", info.Source).Msg("Skipping version with unsupported storage URI")
			return nil
		}
		return err
	}

	metrics, err := j.trackerClient.GetRunMetrics(info.RunID)
	if err != nil {
		j.log.Error().Err(err).Str("run_id", info.RunID).Msg("Failed to fetch run metrics from tracker")
		return err
	}
	if metrics == nil {
		j.log.Debug().Str("run_id", info.RunID).Msg("Run has no evaluation metrics yet")
		return nil
	}

	if _, err := j.registrySvc.RecordMetrics(registry.MetricsRecord{
		Version:     version,
		Precision:   metrics.Precision,
		Recall:      metrics.Recall,
		F1:          metrics.F1,
		AUC:         metrics.AUC,
		SampleCount: metrics.SampleCount,
		EvaluatedAt: time.Now(),
	}); err != nil {
		return err
	}

	j.eventBus.Emit(events.ObservationSynced, "scheduler", map[string]interface{}{
		"model":   j.modelName,
		"version": version,
		"run_id":  info.RunID,
	})

	j.log.Info().
		Str("version", version).
		Float64("precision", metrics.Precision).
		Float64("recall", metrics.Recall).
		Msg("Tracker metrics synced into registry")
	return nil
}

// Name returns the job name for scheduling and logging
func (j *TrackerSyncJob) Name() string {
	return "tracker_sync"
}
