// Package metrics exposes rollout and model health in Prometheus
// exposition format. Gauges and counters are fed by the event bus, so
// the exporter never reaches into module internals.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/events"
)

// Exporter holds the Prometheus collectors for the control plane.
// It owns a private registry so multiple instances (tests, restarts)
// never collide on the default global one.
type Exporter struct {
	registry *prometheus.Registry

	precision     *prometheus.GaugeVec
	recall        *prometheus.GaugeVec
	trafficWeight *prometheus.GaugeVec

	gateEvaluations *prometheus.CounterVec
	rollbacks       prometheus.Counter
	alerts          *prometheus.CounterVec

	// Current rollout versions, remembered so traffic weights can be
	// attributed per model even when an event only carries weights.
	mu        sync.Mutex
	baseline  string
	candidate string

	log zerolog.Logger
}

// NewExporter creates the exporter and registers all collectors
func NewExporter(log zerolog.Logger) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		precision: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modelgate_model_precision",
				Help: "Latest recorded precision per model version",
			},
			[]string{"model"},
		),
		recall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modelgate_model_recall",
				Help: "Latest recorded recall per model version",
			},
			[]string{"model"},
		),
		trafficWeight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modelgate_traffic_weight",
				Help: "Current traffic weight percentage per model version",
			},
			[]string{"model"},
		),
		gateEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelgate_gate_evaluations_total",
				Help: "Total promotion gate evaluations by result",
			},
			[]string{"result"},
		),
		rollbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "modelgate_rollbacks_total",
				Help: "Total rollouts rolled back",
			},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelgate_alerts_total",
				Help: "Total observed-metric alerts by metric",
			},
			[]string{"metric"},
		),
		log: log.With().Str("component", "metrics").Logger(),
	}

	e.registry.MustRegister(
		e.precision,
		e.recall,
		e.trafficWeight,
		e.gateEvaluations,
		e.rollbacks,
		e.alerts,
	)
	return e
}

// Register subscribes the exporter to the events that feed its collectors
func (e *Exporter) Register(bus *events.Bus) {
	bus.Subscribe(events.MetricsRecorded, e.handleMetricsRecorded)
	bus.Subscribe(events.RolloutStarted, e.handleRolloutStarted)
	bus.Subscribe(events.StageAdvanced, e.handleStageAdvanced)
	bus.Subscribe(events.RollbackTriggered, e.handleRollbackTriggered)
	bus.Subscribe(events.GateEvaluated, e.handleGateEvaluated)
	bus.Subscribe(events.AlertRaised, e.handleAlertRaised)
}

// Handler returns the /metrics HTTP handler for this exporter's registry
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) handleMetricsRecorded(event *events.Event) {
	version, ok := stringField(event.Data, "version")
	if !ok {
		e.log.Warn().Msg("Metrics event missing version, skipping")
		return
	}
	if v, ok := floatField(event.Data, "precision"); ok {
		e.precision.WithLabelValues(version).Set(v)
	}
	if v, ok := floatField(event.Data, "recall"); ok {
		e.recall.WithLabelValues(version).Set(v)
	}
}

func (e *Exporter) handleRolloutStarted(event *events.Event) {
	baseline, _ := stringField(event.Data, "baseline_version")
	candidate, _ := stringField(event.Data, "candidate_version")
	if baseline == "" || candidate == "" {
		return
	}

	e.mu.Lock()
	e.baseline = baseline
	e.candidate = candidate
	e.mu.Unlock()

	// Shadow stage: all production traffic stays on the baseline
	e.trafficWeight.WithLabelValues(baseline).Set(100)
	e.trafficWeight.WithLabelValues(candidate).Set(0)
}

func (e *Exporter) handleStageAdvanced(event *events.Event) {
	e.mu.Lock()
	baseline, candidate := e.baseline, e.candidate
	e.mu.Unlock()

	if v, ok := stringField(event.Data, "candidate_version"); ok && v != "" {
		candidate = v
	}

	if w, ok := floatField(event.Data, "baseline_weight"); ok && baseline != "" {
		e.trafficWeight.WithLabelValues(baseline).Set(w)
	}
	if w, ok := floatField(event.Data, "candidate_weight"); ok && candidate != "" {
		e.trafficWeight.WithLabelValues(candidate).Set(w)
	}
}

func (e *Exporter) handleRollbackTriggered(event *events.Event) {
	e.rollbacks.Inc()

	e.mu.Lock()
	baseline, candidate := e.baseline, e.candidate
	e.mu.Unlock()

	if baseline != "" {
		e.trafficWeight.WithLabelValues(baseline).Set(100)
	}
	if candidate != "" {
		e.trafficWeight.WithLabelValues(candidate).Set(0)
	}
}

func (e *Exporter) handleGateEvaluated(event *events.Event) {
	result := "fail"
	if passed, ok := event.Data["passed"].(bool); ok && passed {
		result = "pass"
	}
	e.gateEvaluations.WithLabelValues(result).Inc()
}

func (e *Exporter) handleAlertRaised(event *events.Event) {
	metric, ok := stringField(event.Data, "metric")
	if !ok || metric == "" {
		metric = "unknown"
	}
	e.alerts.WithLabelValues(metric).Inc()
}

func stringField(data map[string]interface{}, key string) (string, bool) {
	v, ok := data[key].(string)
	return v, ok
}

// floatField reads a numeric event field. Weights are emitted as ints
// in-process but arrive as float64 after a JSON round trip.
func floatField(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
