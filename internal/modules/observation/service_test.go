package observation

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

// testSchema mirrors internal/database/schemas/observation_schema.sql
const testSchema = `
CREATE TABLE outcomes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    model       TEXT NOT NULL,
    request_id  TEXT NOT NULL DEFAULT '',
    predicted   INTEGER NOT NULL,
    actual      INTEGER,
    observed_at INTEGER NOT NULL
);
CREATE INDEX idx_outcomes_model_time ON outcomes(model, observed_at DESC);
CREATE INDEX idx_outcomes_pending ON outcomes(actual) WHERE actual IS NULL;
`

func setupTestRepo(t *testing.T) *Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return NewRepository(db, zerolog.Nop())
}

func setupTestService(t *testing.T, thresholds Thresholds) (*Service, *events.Bus) {
	bus := events.NewBus(zerolog.Nop())
	return NewService(setupTestRepo(t), bus, thresholds, zerolog.Nop()), bus
}

func intPtr(i int) *int { return &i }

// record inserts resolved outcomes: tp/fp/fn/tn many of each kind
func record(t *testing.T, svc *Service, model string, tp, fp, fn, tn int) {
	t.Helper()
	insert := func(n, predicted, actual int) {
		for i := 0; i < n; i++ {
			_, err := svc.Record(Outcome{Model: model, Predicted: predicted, Actual: intPtr(actual)})
			require.NoError(t, err)
		}
	}
	insert(tp, 1, 1)
	insert(fp, 1, 0)
	insert(fn, 0, 1)
	insert(tn, 0, 0)
}

func TestConfusionCountsZeroDivision(t *testing.T) {
	// sklearn zero_division=0 semantics: empty denominators score 0
	var c ConfusionCounts
	assert.Equal(t, 0.0, c.Precision())
	assert.Equal(t, 0.0, c.Recall())

	c = ConfusionCounts{TrueNegatives: 10}
	assert.Equal(t, 0.0, c.Precision())
	assert.Equal(t, 0.0, c.Recall())
}

func TestRecordValidates(t *testing.T) {
	svc, _ := setupTestService(t, DefaultThresholds())

	_, err := svc.Record(Outcome{Model: "", Predicted: 1})
	require.Error(t, err)

	_, err = svc.Record(Outcome{Model: "v2", Predicted: 2})
	require.Error(t, err)

	_, err = svc.Record(Outcome{Model: "v2", Predicted: 1, Actual: intPtr(3)})
	require.Error(t, err)

	id, err := svc.Record(Outcome{Model: "v2", Predicted: 1})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
}

func TestResolveOutcome(t *testing.T) {
	svc, _ := setupTestService(t, DefaultThresholds())

	_, err := svc.Record(Outcome{Model: "v2", RequestID: "req-1", Predicted: 1})
	require.NoError(t, err)

	resolved, err := svc.Resolve("req-1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resolved)

	// Already resolved: nothing left to update
	resolved, err = svc.Resolve("req-1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resolved)

	_, err = svc.Resolve("", 1)
	require.Error(t, err)
	_, err = svc.Resolve("req-2", 5)
	require.Error(t, err)
}

func TestWindowGateMetrics(t *testing.T) {
	svc, _ := setupTestService(t, DefaultThresholds())

	// 8 TP, 2 FP, 2 FN, 10 TN: precision 0.8, recall 0.8
	record(t, svc, "v2", 8, 2, 2, 10)

	m, err := svc.WindowGateMetrics("v2", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "v2", m.Version)
	assert.InDelta(t, 0.8, m.Precision, 1e-9)
	assert.InDelta(t, 0.8, m.Recall, 1e-9)
	assert.Equal(t, 22, m.SampleCount)
}

func TestWindowGateMetricsEmptyWindow(t *testing.T) {
	svc, _ := setupTestService(t, DefaultThresholds())

	_, err := svc.WindowGateMetrics("v2", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no resolved outcomes")

	// Pending outcomes do not count
	_, err = svc.Record(Outcome{Model: "v2", Predicted: 1})
	require.NoError(t, err)
	_, err = svc.WindowGateMetrics("v2", time.Hour)
	require.Error(t, err)
}

func TestWindowExcludesOldOutcomes(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewService(repo, events.NewBus(zerolog.Nop()), DefaultThresholds(), zerolog.Nop())

	_, err := repo.InsertOutcome(Outcome{Model: "v2", Predicted: 1, Actual: intPtr(0), ObservedAt: time.Now().Add(-2 * time.Hour)})
	require.NoError(t, err)
	_, err = repo.InsertOutcome(Outcome{Model: "v2", Predicted: 1, Actual: intPtr(1), ObservedAt: time.Now()})
	require.NoError(t, err)

	m, err := svc.WindowGateMetrics("v2", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, m.SampleCount)
	assert.Equal(t, 1.0, m.Precision) // the old false positive is outside the window
}

func TestHealthHealthy(t *testing.T) {
	svc, _ := setupTestService(t, DefaultThresholds())
	record(t, svc, "v2", 9, 1, 2, 10) // precision 0.9, recall ~0.818

	report, err := svc.Health("v2")
	require.NoError(t, err)
	assert.True(t, report.Healthy)
	assert.Empty(t, report.Violations)
	assert.Equal(t, 22, report.SampleCount)
	assert.InDelta(t, 0.9, report.PrecisionMean, 1e-9) // single bucket
}

func TestHealthRaisesAlerts(t *testing.T) {
	svc, bus := setupTestService(t, DefaultThresholds())

	var alerts []*events.Event
	bus.Subscribe(events.AlertRaised, func(e *events.Event) {
		alerts = append(alerts, e)
	})

	// precision 0.5 (< 0.85) and recall 0.5 (< 0.75)
	record(t, svc, "v2", 5, 5, 5, 5)

	report, err := svc.Health("v2")
	require.NoError(t, err)
	assert.False(t, report.Healthy)
	require.Len(t, report.Violations, 2)
	require.Len(t, alerts, 2)
	assert.Equal(t, "precision", alerts[0].Data["metric"])
	assert.Equal(t, "recall", alerts[1].Data["metric"])
}

func TestHealthNoSamples(t *testing.T) {
	svc, bus := setupTestService(t, DefaultThresholds())

	var alerts int
	bus.Subscribe(events.AlertRaised, func(*events.Event) { alerts++ })

	report, err := svc.Health("v2")
	require.NoError(t, err)
	assert.False(t, report.Healthy)
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0], "no resolved outcomes")
	// An empty window is not an alert, just not evidence of health
	assert.Zero(t, alerts)
}

func TestPurgeOlderThan(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewService(repo, events.NewBus(zerolog.Nop()), DefaultThresholds(), zerolog.Nop())

	_, err := repo.InsertOutcome(Outcome{Model: "v2", Predicted: 1, Actual: intPtr(1), ObservedAt: time.Now().Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = repo.InsertOutcome(Outcome{Model: "v2", Predicted: 1, Actual: intPtr(1), ObservedAt: time.Now()})
	require.NoError(t, err)

	purged, err := svc.PurgeOlderThan(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	m, err := svc.WindowGateMetrics("v2", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, m.SampleCount)
}
