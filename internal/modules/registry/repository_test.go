package registry

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/modelgate/internal/events"
)

// testSchema mirrors internal/database/schemas/registry_schema.sql
const testSchema = `
CREATE TABLE model_versions (
    version      TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    storage_uri  TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);
CREATE TABLE model_metrics (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    version      TEXT NOT NULL REFERENCES model_versions(version),
    precision    REAL NOT NULL,
    recall       REAL NOT NULL,
    f1           REAL,
    auc          REAL,
    sample_count INTEGER,
    evaluated_at INTEGER NOT NULL
);
CREATE INDEX idx_model_metrics_version ON model_metrics(version, evaluated_at DESC);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func setupService(t *testing.T) *Service {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	bus := events.NewBus(zerolog.Nop())
	return NewService(repo, bus, zerolog.Nop())
}

func TestUpsertAndGetVersion(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	err := repo.UpsertVersion(ModelVersion{
		Version:     "v1",
		DisplayName: "fraud-detection-v1",
		StorageURI:  "s3://mlflow-artifacts/1/abc/artifacts/fraud-v1-baseline",
	})
	require.NoError(t, err)

	got, err := repo.GetVersion("v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fraud-detection-v1", got.DisplayName)
	assert.Equal(t, "s3://mlflow-artifacts/1/abc/artifacts/fraud-v1-baseline", got.StorageURI)

	// Upsert updates metadata without erroring
	err = repo.UpsertVersion(ModelVersion{Version: "v1", StorageURI: "s3://mlflow-artifacts/1/def/artifacts/fraud-v1"})
	require.NoError(t, err)

	got, err = repo.GetVersion("v1")
	require.NoError(t, err)
	assert.Equal(t, "s3://mlflow-artifacts/1/def/artifacts/fraud-v1", got.StorageURI)
}

func TestGetVersionMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	got, err := repo.GetVersion("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLatestMetricsPicksNewest(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	require.NoError(t, repo.UpsertVersion(ModelVersion{Version: "v2"}))

	older := MetricsRecord{Version: "v2", Precision: 0.70, Recall: 0.60, EvaluatedAt: time.Now().Add(-time.Hour)}
	newer := MetricsRecord{Version: "v2", Precision: 0.79, Recall: 0.77, F1: 0.78, AUC: 0.95, SampleCount: 120000, EvaluatedAt: time.Now()}

	_, err := repo.InsertMetrics(older)
	require.NoError(t, err)
	_, err = repo.InsertMetrics(newer)
	require.NoError(t, err)

	got, err := repo.LatestMetrics("v2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.79, got.Precision)
	assert.Equal(t, 0.77, got.Recall)
	assert.Equal(t, 0.78, got.F1)
	assert.Equal(t, 120000, got.SampleCount)
}

func TestLatestMetricsMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	got, err := repo.LatestMetrics("v9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMetricsHistoryOrder(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	require.NoError(t, repo.UpsertVersion(ModelVersion{Version: "v1"}))

	base := time.Now().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		_, err := repo.InsertMetrics(MetricsRecord{
			Version:     "v1",
			Precision:   0.7 + float64(i)*0.01,
			Recall:      0.6,
			EvaluatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	history, err := repo.MetricsHistory("v1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 0.72, history[0].Precision) // newest first
}

func TestServiceRecordMetricsValidates(t *testing.T) {
	svc := setupService(t)

	_, err := svc.RecordMetrics(MetricsRecord{Version: "v1", Precision: 1.2, Recall: 0.5})
	require.Error(t, err)

	_, err = svc.RecordMetrics(MetricsRecord{Version: "v1", Precision: 0.8, Recall: -0.1})
	require.Error(t, err)

	_, err = svc.RecordMetrics(MetricsRecord{Version: "", Precision: 0.8, Recall: 0.5})
	require.Error(t, err)

	// Valid metrics auto-register the version
	id, err := svc.RecordMetrics(MetricsRecord{Version: "v1", Precision: 0.8, Recall: 0.5})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	v, err := svc.GetVersion("v1")
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestServiceLatestGateMetrics(t *testing.T) {
	svc := setupService(t)

	_, err := svc.LatestGateMetrics("v1")
	require.Error(t, err) // nothing recorded yet

	_, err = svc.RecordMetrics(MetricsRecord{Version: "v1", Precision: 0.80, Recall: 0.70})
	require.NoError(t, err)

	m, err := svc.LatestGateMetrics("v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", m.Version)
	assert.Equal(t, 0.80, m.Precision)
	assert.Equal(t, 0.70, m.Recall)
}

func TestValidateStorageURI(t *testing.T) {
	assert.NoError(t, ValidateStorageURI("s3://bucket/path/to/model"))
	assert.Error(t, ValidateStorageURI("http://bucket/path"))
	assert.Error(t, ValidateStorageURI("s3://bucket"))
}
