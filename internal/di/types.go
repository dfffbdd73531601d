package di

import (
	"database/sql"

	"github.com/aristath/modelgate/internal/cachedata"
	"github.com/aristath/modelgate/internal/clients/mesh"
	"github.com/aristath/modelgate/internal/clients/tracker"
	"github.com/aristath/modelgate/internal/database"
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

// Container holds all initialized dependencies.
// Fields are populated in order: databases, repositories, services.
type Container struct {
	// Databases
	RegistryDB    *database.DB
	RolloutDB     *database.DB
	ObservationDB *database.DB
	AuditDB       *database.DB
	CacheDB       *database.DB

	// Event bus (synchronous fan-out)
	EventBus *events.Bus

	// Repositories
	RegistryRepo    *registry.Repository
	RolloutRepo     *rollout.Repository
	ObservationRepo *observation.Repository
	AuditRepo       *audit.Repository
	CacheRepo       *cachedata.Repository

	// External clients
	TrackerClient *tracker.Client
	MeshClient    *mesh.Client

	// Services
	GatePolicy         gate.Policy
	RegistryService    *registry.Service
	RolloutService     *rollout.Service
	ObservationService *observation.Service
	ManifestGenerator  *manifest.Generator
	ManifestService    *manifest.Service

	// Prometheus exporter, fed by the event bus
	MetricsExporter *metrics.Exporter

	// Backup (nil when backups are disabled)
	BackupService *reliability.BackupService
}

// databaseMap returns the live connections keyed by database name,
// in the form the backup service snapshots them.
func (c *Container) databaseMap() map[string]*sql.DB {
	return map[string]*sql.DB{
		"registry":    c.RegistryDB.Conn(),
		"rollout":     c.RolloutDB.Conn(),
		"observation": c.ObservationDB.Conn(),
		"audit":       c.AuditDB.Conn(),
		"cache":       c.CacheDB.Conn(),
	}
}

// Close closes all database connections
func (c *Container) Close() {
	for _, db := range []*database.DB{c.RegistryDB, c.RolloutDB, c.ObservationDB, c.AuditDB, c.CacheDB} {
		if db != nil {
			db.Close()
		}
	}
}
