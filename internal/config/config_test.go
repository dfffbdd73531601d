package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MODELGATE_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, 0.05, cfg.Gate.MinRecallImprovement)
	assert.Equal(t, 0.95, cfg.Gate.PrecisionRetention)
	assert.Equal(t, 80, cfg.Gate.InitialBaselinePct)
	assert.Equal(t, 20, cfg.Gate.InitialCandidatePct)
	assert.Equal(t, 60, cfg.Observation.LookbackMinutes)
	assert.Equal(t, 0.85, cfg.Observation.MinPrecision)
	assert.Equal(t, 0.75, cfg.Observation.MinRecall)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MODELGATE_DATA_DIR", t.TempDir())
	t.Setenv("GATE_MIN_RECALL_IMPROVEMENT", "0.10")
	t.Setenv("GATE_INITIAL_BASELINE_PCT", "90")
	t.Setenv("GATE_INITIAL_CANDIDATE_PCT", "10")
	t.Setenv("OBSERVATION_LOOKBACK_MINUTES", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.10, cfg.Gate.MinRecallImprovement)
	assert.Equal(t, 90, cfg.Gate.InitialBaselinePct)
	assert.Equal(t, 10, cfg.Gate.InitialCandidatePct)
	assert.Equal(t, 30, cfg.Observation.LookbackMinutes)
}

func TestValidateRejectsBadSplit(t *testing.T) {
	t.Setenv("MODELGATE_DATA_DIR", t.TempDir())
	t.Setenv("GATE_INITIAL_BASELINE_PCT", "70")
	t.Setenv("GATE_INITIAL_CANDIDATE_PCT", "20")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
}

func TestValidateRejectsBadRetention(t *testing.T) {
	t.Setenv("MODELGATE_DATA_DIR", t.TempDir())
	t.Setenv("GATE_PRECISION_RETENTION", "1.5")

	_, err := Load()
	require.Error(t, err)
}

func TestBackupEnabledWithBucket(t *testing.T) {
	t.Setenv("MODELGATE_DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_S3_BUCKET", "modelgate-backups")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "modelgate-backups", cfg.Backup.Bucket)
}
