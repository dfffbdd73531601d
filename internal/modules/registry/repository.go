// Package registry provides storage for model versions and their offline
// evaluation metrics. Metrics arrive from the training pipeline (one record
// per run) and are read by the gate when a promotion is evaluated.
package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles registry database operations.
// Model versions and metrics are stored in registry.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new registry repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "registry").Logger(),
	}
}

// UpsertVersion registers a model version or updates its metadata.
// The storage URI is what the manifest generator substitutes into the
// serving-mesh config, so it must be kept current when a model is re-logged.
func (r *Repository) UpsertVersion(v ModelVersion) error {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO model_versions (version, display_name, storage_uri, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET
			display_name = excluded.display_name,
			storage_uri = excluded.storage_uri
	`, v.Version, v.DisplayName, v.StorageURI, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert model version %s: %w", v.Version, err)
	}
	return nil
}

// GetVersion retrieves a model version by identifier.
// Returns nil if the version doesn't exist (not an error).
func (r *Repository) GetVersion(version string) (*ModelVersion, error) {
	var v ModelVersion
	var createdAt int64
	err := r.db.QueryRow(`
		SELECT version, display_name, storage_uri, created_at
		FROM model_versions WHERE version = ?
	`, version).Scan(&v.Version, &v.DisplayName, &v.StorageURI, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model version %s: %w", version, err)
	}
	v.CreatedAt = time.Unix(createdAt, 0)
	return &v, nil
}

// ListVersions retrieves all registered model versions, newest first
func (r *Repository) ListVersions() ([]ModelVersion, error) {
	rows, err := r.db.Query(`
		SELECT version, display_name, storage_uri, created_at
		FROM model_versions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list model versions: %w", err)
	}
	defer rows.Close()

	var versions []ModelVersion
	for rows.Next() {
		var v ModelVersion
		var createdAt int64
		if err := rows.Scan(&v.Version, &v.DisplayName, &v.StorageURI, &createdAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan model version row")
			continue
		}
		v.CreatedAt = time.Unix(createdAt, 0)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// InsertMetrics stores one offline evaluation record.
// The version must already be registered (foreign key).
func (r *Repository) InsertMetrics(m MetricsRecord) (int64, error) {
	evaluatedAt := m.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = time.Now()
	}

	result, err := r.db.Exec(`
		INSERT INTO model_metrics (version, precision, recall, f1, auc, sample_count, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Version, m.Precision, m.Recall, nullFloat(m.F1), nullFloat(m.AUC), nullInt(m.SampleCount), evaluatedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert metrics for %s: %w", m.Version, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get metrics insert id: %w", err)
	}
	return id, nil
}

// LatestMetrics retrieves the most recent evaluation record for a version.
// Returns nil if no metrics have been recorded (not an error).
func (r *Repository) LatestMetrics(version string) (*MetricsRecord, error) {
	var m MetricsRecord
	var f1, auc sql.NullFloat64
	var sampleCount sql.NullInt64
	var evaluatedAt int64

	err := r.db.QueryRow(`
		SELECT id, version, precision, recall, f1, auc, sample_count, evaluated_at
		FROM model_metrics
		WHERE version = ?
		ORDER BY evaluated_at DESC, id DESC
		LIMIT 1
	`, version).Scan(&m.ID, &m.Version, &m.Precision, &m.Recall, &f1, &auc, &sampleCount, &evaluatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest metrics for %s: %w", version, err)
	}

	m.F1 = f1.Float64
	m.AUC = auc.Float64
	m.SampleCount = int(sampleCount.Int64)
	m.EvaluatedAt = time.Unix(evaluatedAt, 0)
	return &m, nil
}

// MetricsHistory retrieves evaluation records for a version, newest first
func (r *Repository) MetricsHistory(version string, limit int) ([]MetricsRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, version, precision, recall, f1, auc, sample_count, evaluated_at
		FROM model_metrics
		WHERE version = ?
		ORDER BY evaluated_at DESC, id DESC
		LIMIT ?
	`, version, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics history for %s: %w", version, err)
	}
	defer rows.Close()

	var records []MetricsRecord
	for rows.Next() {
		var m MetricsRecord
		var f1, auc sql.NullFloat64
		var sampleCount sql.NullInt64
		var evaluatedAt int64
		if err := rows.Scan(&m.ID, &m.Version, &m.Precision, &m.Recall, &f1, &auc, &sampleCount, &evaluatedAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan metrics row")
			continue
		}
		m.F1 = f1.Float64
		m.AUC = auc.Float64
		m.SampleCount = int(sampleCount.Int64)
		m.EvaluatedAt = time.Unix(evaluatedAt, 0)
		records = append(records, m)
	}
	return records, rows.Err()
}

// nullFloat maps the zero value to NULL (informational metrics are optional)
func nullFloat(v float64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// nullInt maps the zero value to NULL
func nullInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
