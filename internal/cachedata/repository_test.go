package cachedata

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSchema mirrors internal/database/schemas/cache_schema.sql
const testSchema = `
CREATE TABLE tracker_metrics (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE TABLE tracker_models (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE TABLE mesh_status (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
`

type cachedMetrics struct {
	Precision float64 `msgpack:"precision"`
	Recall    float64 `msgpack:"recall"`
}

func setupTestRepo(t *testing.T) *Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := setupTestRepo(t)

	stored := cachedMetrics{Precision: 0.79, Recall: 0.77}
	require.NoError(t, repo.Store("tracker_metrics", "v2", stored, time.Hour))

	var got cachedMetrics
	found, err := repo.GetIfFresh("tracker_metrics", "v2", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stored, got)
}

func TestGetIfFreshMissing(t *testing.T) {
	repo := setupTestRepo(t)

	var got cachedMetrics
	found, err := repo.GetIfFresh("tracker_metrics", "nope", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiredDataStillAvailableViaGet(t *testing.T) {
	repo := setupTestRepo(t)

	stored := cachedMetrics{Precision: 0.80, Recall: 0.70}
	require.NoError(t, repo.Store("tracker_metrics", "v1", stored, -time.Minute))

	var got cachedMetrics
	found, err := repo.GetIfFresh("tracker_metrics", "v1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	// Stale fallback path
	found, err = repo.Get("tracker_metrics", "v1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stored, got)
}

func TestStoreUpserts(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Store("mesh_status", "fraud-detection", map[string]string{"state": "degraded"}, time.Minute))
	require.NoError(t, repo.Store("mesh_status", "fraud-detection", map[string]string{"state": "healthy"}, time.Minute))

	var got map[string]string
	found, err := repo.GetIfFresh("mesh_status", "fraud-detection", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "healthy", got["state"])
}

func TestInvalidTableRejected(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Store("outcomes; DROP TABLE outcomes", "k", "v", time.Minute)
	require.Error(t, err)

	var got string
	_, err = repo.Get("not_a_table", "k", &got)
	require.Error(t, err)

	err = repo.Delete("not_a_table", "k")
	require.Error(t, err)
}

func TestDelete(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Store("tracker_models", "fraud-detection", "v2", time.Hour))
	require.NoError(t, repo.Delete("tracker_models", "fraud-detection"))

	var got string
	found, err := repo.Get("tracker_models", "fraud-detection", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Store("tracker_metrics", "old", "x", -time.Minute))
	require.NoError(t, repo.Store("tracker_metrics", "fresh", "y", time.Hour))
	require.NoError(t, repo.Store("mesh_status", "old", "z", -time.Minute))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["tracker_metrics"])
	assert.Equal(t, int64(1), results["mesh_status"])
	assert.Equal(t, int64(0), results["tracker_models"])

	var got string
	found, err := repo.Get("tracker_metrics", "fresh", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCleanupJob(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.Store("tracker_metrics", "old", "x", -time.Minute))

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	var got string
	found, err := repo.Get("tracker_metrics", "old", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
