package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/config"
	"github.com/aristath/modelgate/internal/database"
)

// InitializeDatabases opens the five databases and runs migrations.
//
//   - registry.db: model versions and their offline evaluation metrics
//   - rollout.db: rollout state machine (current stage, traffic split)
//   - observation.db: production prediction outcomes (high write volume)
//   - audit.db: append-only decision ledger (maximum durability)
//   - cache.db: external API response cache (ephemeral, rebuildable)
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	specs := []struct {
		name    string
		profile database.DatabaseProfile
		dest    **database.DB
	}{
		{"registry", database.ProfileStandard, &container.RegistryDB},
		{"rollout", database.ProfileStandard, &container.RolloutDB},
		{"observation", database.ProfileStandard, &container.ObservationDB},
		{"audit", database.ProfileLedger, &container.AuditDB},
		{"cache", database.ProfileCache, &container.CacheDB},
	}

	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to open %s database: %w", spec.name, err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", spec.name, err)
		}
		*spec.dest = db
		log.Info().Str("database", spec.name).Str("profile", string(spec.profile)).Msg("Database initialized")
	}

	return container, nil
}
