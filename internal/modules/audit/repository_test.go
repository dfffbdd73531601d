package audit

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/aristath/modelgate/internal/modules/rollout"
)

// testSchema mirrors internal/database/schemas/audit_schema.sql
const testSchema = `
CREATE TABLE audit_entries (
    id                 TEXT PRIMARY KEY,
    kind               TEXT NOT NULL,
    rollout_id         TEXT NOT NULL DEFAULT '',
    baseline_version   TEXT NOT NULL DEFAULT '',
    candidate_version  TEXT NOT NULL DEFAULT '',
    passed             INTEGER,
    recall_improvement REAL,
    precision_ok       INTEGER,
    reason             TEXT NOT NULL DEFAULT '',
    stage_from         TEXT NOT NULL DEFAULT '',
    stage_to           TEXT NOT NULL DEFAULT '',
    created_at         INTEGER NOT NULL
);
CREATE INDEX idx_audit_kind_time ON audit_entries(kind, created_at DESC);
`

func setupTestRepo(t *testing.T) *Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return NewRepository(db, zerolog.Nop())
}

func TestRecordDecision(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.RecordDecision("v1", "v2", gate.PromotionDecision{
		Passed:            true,
		RecallImprovement: 0.10,
		PrecisionOK:       true,
		Reason:            "all criteria met",
	})
	require.NoError(t, err)

	entries, err := repo.List(KindGateDecision, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, KindGateDecision, e.Kind)
	assert.Equal(t, "v1", e.BaselineVersion)
	assert.Equal(t, "v2", e.CandidateVersion)
	require.NotNil(t, e.Passed)
	assert.True(t, *e.Passed)
	require.NotNil(t, e.RecallImprovement)
	assert.InDelta(t, 0.10, *e.RecallImprovement, 1e-9)
	require.NotNil(t, e.PrecisionOK)
	assert.True(t, *e.PrecisionOK)
	assert.NotEmpty(t, e.ID)
}

func TestRecordTransitionKinds(t *testing.T) {
	repo := setupTestRepo(t)

	ro := rollout.Rollout{ID: "r1", BaselineVersion: "v1", CandidateVersion: "v2"}
	require.NoError(t, repo.RecordTransition(ro, rollout.StageShadow, rollout.StageCanary20, "gate passed"))
	require.NoError(t, repo.RecordTransition(ro, rollout.StageCanary20, rollout.StageRolledBack, "precision alert"))

	transitions, err := repo.List(KindStageTransition, 10)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, "shadow", transitions[0].StageFrom)
	assert.Equal(t, "canary-20", transitions[0].StageTo)

	// The entry is attributed to the rollout, not just the versions
	assert.Equal(t, "r1", transitions[0].RolloutID)
	assert.Equal(t, "v1", transitions[0].BaselineVersion)
	assert.Equal(t, "v2", transitions[0].CandidateVersion)

	// Transitions into rolled-back are classified as rollbacks
	rollbacks, err := repo.List(KindRollback, 10)
	require.NoError(t, err)
	require.Len(t, rollbacks, 1)
	assert.Equal(t, "precision alert", rollbacks[0].Reason)
	assert.Equal(t, "r1", rollbacks[0].RolloutID)
	assert.Nil(t, rollbacks[0].Passed)
}

func TestRecordAlert(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.RecordAlert("v2", "observed recall 0.61 below threshold 0.75"))

	entries, err := repo.List(KindAlert, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "v2", entries[0].CandidateVersion)
}

func TestListUnfilteredAndCount(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.RecordAlert("v2", "a"))
	require.NoError(t, repo.RecordDecision("v1", "v2", gate.PromotionDecision{Reason: "held"}))
	require.NoError(t, repo.RecordTransition(rollout.Rollout{ID: "r1", BaselineVersion: "v1", CandidateVersion: "v2"}, rollout.StageShadow, rollout.StageCanary20, "ok"))

	all, err := repo.List("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	total, err := repo.Count("")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	alerts, err := repo.Count(KindAlert)
	require.NoError(t, err)
	assert.Equal(t, 1, alerts)
}
