package registry

import (
	"fmt"
	"strings"

	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/rs/zerolog"
)

// Service coordinates registry writes with validation and event emission
type Service struct {
	repo     *Repository
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewService creates a new registry service
func NewService(repo *Repository, eventBus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		log:      log.With().Str("service", "registry").Logger(),
	}
}

// RegisterVersion validates and stores a model version.
// Storage URIs follow the artifact-store convention (s3://bucket/path);
// an empty URI is allowed for versions whose artifact hasn't been logged yet.
func (s *Service) RegisterVersion(v ModelVersion) error {
	if v.Version == "" {
		return fmt.Errorf("model version identifier is required")
	}
	if v.StorageURI != "" {
		if err := ValidateStorageURI(v.StorageURI); err != nil {
			return err
		}
	}

	if err := s.repo.UpsertVersion(v); err != nil {
		return err
	}

	s.log.Info().
		Str("version", v.Version).
		Str("storage_uri", v.StorageURI).
		Msg("Model version registered")
	return nil
}

// RecordMetrics validates and stores one offline evaluation.
// Validation happens here, at the write boundary, so that anything the
// gate later reads from the registry is already known to be in range.
func (s *Service) RecordMetrics(m MetricsRecord) (int64, error) {
	if m.Version == "" {
		return 0, fmt.Errorf("metrics version identifier is required")
	}
	if err := validateRange("precision", m.Precision); err != nil {
		return 0, err
	}
	if err := validateRange("recall", m.Recall); err != nil {
		return 0, err
	}
	if m.F1 != 0 {
		if err := validateRange("f1", m.F1); err != nil {
			return 0, err
		}
	}
	if m.AUC != 0 {
		if err := validateRange("auc", m.AUC); err != nil {
			return 0, err
		}
	}
	if m.SampleCount < 0 {
		return 0, fmt.Errorf("sample_count must be non-negative, got %d: %w", m.SampleCount, gate.ErrInvalidMetrics)
	}

	// The version must exist; create a bare entry if the training pipeline
	// pushed metrics before registering the artifact.
	existing, err := s.repo.GetVersion(m.Version)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		if err := s.repo.UpsertVersion(ModelVersion{Version: m.Version}); err != nil {
			return 0, err
		}
	}

	id, err := s.repo.InsertMetrics(m)
	if err != nil {
		return 0, err
	}

	s.eventBus.Emit(events.MetricsRecorded, "registry", map[string]interface{}{
		"version":   m.Version,
		"precision": m.Precision,
		"recall":    m.Recall,
	})

	s.log.Info().
		Str("version", m.Version).
		Float64("precision", m.Precision).
		Float64("recall", m.Recall).
		Msg("Offline metrics recorded")
	return id, nil
}

// LatestGateMetrics returns the newest evaluation for a version as the
// gate's input value. Returns an error if no metrics exist, since a
// promotion evaluation without metrics is a caller mistake.
func (s *Service) LatestGateMetrics(version string) (gate.ModelMetrics, error) {
	record, err := s.repo.LatestMetrics(version)
	if err != nil {
		return gate.ModelMetrics{}, err
	}
	if record == nil {
		return gate.ModelMetrics{}, fmt.Errorf("no metrics recorded for model version %q", version)
	}
	return record.ToGateMetrics(), nil
}

// ListVersions returns all registered versions
func (s *Service) ListVersions() ([]ModelVersion, error) {
	return s.repo.ListVersions()
}

// GetVersion returns a single version, nil if absent
func (s *Service) GetVersion(version string) (*ModelVersion, error) {
	return s.repo.GetVersion(version)
}

// MetricsHistory returns recent evaluations for a version
func (s *Service) MetricsHistory(version string, limit int) ([]MetricsRecord, error) {
	return s.repo.MetricsHistory(version, limit)
}

// ValidateStorageURI checks the artifact-store URI format:
// it must start with s3:// and include a bucket and path.
func ValidateStorageURI(uri string) error {
	if !strings.HasPrefix(uri, "s3://") {
		return fmt.Errorf("storage URI must start with s3://, got %q", uri)
	}
	if len(strings.Split(uri, "/")) < 4 {
		return fmt.Errorf("storage URI must include bucket and path (s3://bucket/path), got %q", uri)
	}
	return nil
}

// validateRange rejects metric values outside [0,1]
func validateRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s %v out of range [0,1]: %w", name, v, gate.ErrInvalidMetrics)
	}
	return nil
}
