package scheduler

import (
	"github.com/aristath/modelgate/internal/clients/tracker"
	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/aristath/modelgate/internal/modules/observation"
	"github.com/aristath/modelgate/internal/modules/registry"
	"github.com/aristath/modelgate/internal/modules/rollout"
)

// TrackerClientInterface defines the contract for experiment tracker operations
// Used by jobs to enable testing with mocks
type TrackerClientInterface interface {
	GetLatestVersion(model string) (*tracker.ModelVersionInfo, error)
	GetRunMetrics(runID string) (*tracker.RunMetrics, error)
}

// RegistryServiceInterface defines the contract for registry writes
// Used by jobs to enable testing with mocks
type RegistryServiceInterface interface {
	RegisterVersion(v registry.ModelVersion) error
	RecordMetrics(m registry.MetricsRecord) (int64, error)
	LatestGateMetrics(version string) (gate.ModelMetrics, error)
}

// RolloutServiceInterface defines the contract for rollout progression
// Used by jobs to enable testing with mocks
type RolloutServiceInterface interface {
	Current() (*rollout.Rollout, error)
	Advance() (*rollout.Rollout, *gate.PromotionDecision, error)
	Rollback(reason string) (*rollout.Rollout, error)
}

// ObservationServiceInterface defines the contract for online validation
// Used by jobs to enable testing with mocks
type ObservationServiceInterface interface {
	Health(model string) (observation.WindowReport, error)
}
