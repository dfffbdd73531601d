package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/modelgate/internal/events"
)

func setupExporterTest(t *testing.T) (*Exporter, *events.Bus) {
	t.Helper()
	bus := events.NewBus(zerolog.Nop())
	exporter := NewExporter(zerolog.Nop())
	exporter.Register(bus)
	return exporter, bus
}

// scrape renders the exporter's registry the way Prometheus would
func scrape(t *testing.T, e *Exporter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestExporterModelMetrics(t *testing.T) {
	exporter, bus := setupExporterTest(t)

	bus.Emit(events.MetricsRecorded, "registry", map[string]interface{}{
		"version":   "v2",
		"precision": 0.972,
		"recall":    0.81,
	})

	body := scrape(t, exporter)
	assert.Contains(t, body, `modelgate_model_precision{model="v2"} 0.972`)
	assert.Contains(t, body, `modelgate_model_recall{model="v2"} 0.81`)
}

func TestExporterTrafficWeightsFollowRollout(t *testing.T) {
	exporter, bus := setupExporterTest(t)

	bus.Emit(events.RolloutStarted, "rollout", map[string]interface{}{
		"rollout_id":        "r1",
		"baseline_version":  "v1",
		"candidate_version": "v2",
	})

	body := scrape(t, exporter)
	assert.Contains(t, body, `modelgate_traffic_weight{model="v1"} 100`)
	assert.Contains(t, body, `modelgate_traffic_weight{model="v2"} 0`)

	bus.EmitTyped("rollout", &events.StageAdvancedData{
		RolloutID:        "r1",
		From:             "shadow",
		To:               "canary-20",
		BaselineWeight:   80,
		CandidateWeight:  20,
		CandidateVersion: "v2",
	})

	body = scrape(t, exporter)
	assert.Contains(t, body, `modelgate_traffic_weight{model="v1"} 80`)
	assert.Contains(t, body, `modelgate_traffic_weight{model="v2"} 20`)
}

func TestExporterRollbackRestoresBaseline(t *testing.T) {
	exporter, bus := setupExporterTest(t)

	bus.Emit(events.RolloutStarted, "rollout", map[string]interface{}{
		"rollout_id":        "r1",
		"baseline_version":  "v1",
		"candidate_version": "v2",
	})
	bus.EmitTyped("rollout", &events.StageAdvancedData{
		RolloutID:       "r1",
		BaselineWeight:  80,
		CandidateWeight: 20,
	})
	bus.EmitTyped("rollout", &events.RollbackTriggeredData{
		RolloutID: "r1",
		From:      "canary-20",
		Reason:    "precision breach",
	})

	body := scrape(t, exporter)
	assert.Contains(t, body, `modelgate_traffic_weight{model="v1"} 100`)
	assert.Contains(t, body, `modelgate_traffic_weight{model="v2"} 0`)
	assert.Contains(t, body, "modelgate_rollbacks_total 1")
}

func TestExporterGateAndAlertCounters(t *testing.T) {
	exporter, bus := setupExporterTest(t)

	bus.EmitTyped("rollout", &events.GateEvaluatedData{Passed: true})
	bus.EmitTyped("rollout", &events.GateEvaluatedData{Passed: false})
	bus.EmitTyped("rollout", &events.GateEvaluatedData{Passed: false})
	bus.EmitTyped("observation", &events.AlertRaisedData{
		Model:     "v2",
		Metric:    "precision",
		Value:     0.61,
		Threshold: 0.75,
	})

	body := scrape(t, exporter)
	assert.Contains(t, body, `modelgate_gate_evaluations_total{result="pass"} 1`)
	assert.Contains(t, body, `modelgate_gate_evaluations_total{result="fail"} 2`)
	assert.Contains(t, body, `modelgate_alerts_total{metric="precision"} 1`)
}
