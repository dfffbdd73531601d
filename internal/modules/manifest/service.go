package manifest

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/registry"
	"github.com/aristath/modelgate/internal/modules/rollout"
)

// VersionSource resolves model versions to their registered metadata
type VersionSource interface {
	GetVersion(version string) (*registry.ModelVersion, error)
}

// Service composes the model-config document from rollout state and the
// registry, and pushes it through the generator.
type Service struct {
	generator *Generator
	versions  VersionSource
	log       zerolog.Logger
}

// NewService creates a new manifest service
func NewService(generator *Generator, versions VersionSource, log zerolog.Logger) *Service {
	return &Service{
		generator: generator,
		versions:  versions,
		log:       log.With().Str("service", "manifest").Logger(),
	}
}

// SyncRollout writes the config for a rollout's current split.
// Both versions must be registered with storage URIs; the mesh cannot
// route traffic to a model it cannot locate.
func (s *Service) SyncRollout(ro rollout.Rollout) error {
	baseline, err := s.lookupURI(ro.BaselineVersion)
	if err != nil {
		return err
	}
	candidate, err := s.lookupURI(ro.CandidateVersion)
	if err != nil {
		return err
	}

	cfg, err := NewModelConfig(baseline, candidate, ro.Split.BaselineWeight, ro.Split.CandidateWeight)
	if err != nil {
		return err
	}
	return s.generator.Write(cfg)
}

// Current returns the config on disk, nil if none has been written
func (s *Service) Current() (*ModelConfig, error) {
	return s.generator.Read()
}

func (s *Service) lookupURI(version string) (string, error) {
	v, err := s.versions.GetVersion(version)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("model version %s is not registered", version)
	}
	if v.StorageURI == "" {
		return "", fmt.Errorf("model version %s has no storage URI", version)
	}
	return v.StorageURI, nil
}
