package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/cachedata"
	"github.com/aristath/modelgate/internal/clients/mesh"
	"github.com/aristath/modelgate/internal/clients/tracker"
	"github.com/aristath/modelgate/internal/config"
	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/metrics"
	"github.com/aristath/modelgate/internal/modules/audit"
	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/aristath/modelgate/internal/modules/manifest"
	"github.com/aristath/modelgate/internal/modules/observation"
	"github.com/aristath/modelgate/internal/modules/registry"
	"github.com/aristath/modelgate/internal/modules/rollout"
	"github.com/aristath/modelgate/internal/reliability"
)

// InitializeServices creates repositories, clients, and services on an
// already-initialized container
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus(log)

	// Repositories
	container.RegistryRepo = registry.NewRepository(container.RegistryDB.Conn(), log)
	container.RolloutRepo = rollout.NewRepository(container.RolloutDB.Conn(), log)
	container.ObservationRepo = observation.NewRepository(container.ObservationDB.Conn(), log)
	container.AuditRepo = audit.NewRepository(container.AuditDB.Conn(), log)
	container.CacheRepo = cachedata.NewRepository(container.CacheDB.Conn())

	// External clients, backed by the cache repository so tracker and mesh
	// outages degrade to stale data instead of failures
	container.TrackerClient = tracker.NewClient(cfg.TrackerURL, container.CacheRepo, log)
	container.MeshClient = mesh.NewClient(cfg.MeshURL, cfg.MeshHost, cfg.MeshDeploy, container.CacheRepo, log)

	// Gate policy from configuration
	container.GatePolicy = gate.Policy{
		MinRecallImprovement: cfg.Gate.MinRecallImprovement,
		PrecisionRetention:   cfg.Gate.PrecisionRetention,
	}

	// Services
	container.RegistryService = registry.NewService(container.RegistryRepo, container.EventBus, log)
	container.ObservationService = observation.NewService(
		container.ObservationRepo,
		container.EventBus,
		observation.Thresholds{
			LookbackMinutes: cfg.Observation.LookbackMinutes,
			MinPrecision:    cfg.Observation.MinPrecision,
			MinRecall:       cfg.Observation.MinRecall,
		},
		log,
	)

	initialSplit, err := rollout.NewTrafficSplit(cfg.Gate.InitialBaselinePct, cfg.Gate.InitialCandidatePct)
	if err != nil {
		return fmt.Errorf("invalid initial traffic split: %w", err)
	}
	container.RolloutService = rollout.NewService(rollout.Config{
		Repo:     container.RolloutRepo,
		Ramp:     rollout.NewRamp(initialSplit),
		Policy:   container.GatePolicy,
		Offline:  container.RegistryService,
		Observed: container.ObservationService,
		Auditor:  container.AuditRepo,
		EventBus: container.EventBus,
		Window:   time.Duration(cfg.Observation.LookbackMinutes) * time.Minute,
		Log:      log,
	})

	container.MetricsExporter = metrics.NewExporter(log)

	container.ManifestGenerator = manifest.NewGenerator(cfg.ManifestPath, container.EventBus, log)
	container.ManifestService = manifest.NewService(container.ManifestGenerator, container.RegistryService, log)

	// Backup service, only when a bucket is configured
	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(
			cfg.Backup.Endpoint,
			cfg.Backup.Region,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(s3Client, container.databaseMap(), cfg.DataDir, log)
	}

	return nil
}
