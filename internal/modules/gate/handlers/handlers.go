// Package handlers provides the HTTP surface for ad-hoc gate evaluations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/gate"
)

// MetricsSource resolves a model version to its latest offline metrics
type MetricsSource interface {
	LatestGateMetrics(version string) (gate.ModelMetrics, error)
}

// Auditor records evaluated decisions
type Auditor interface {
	RecordDecision(baseline, candidate string, decision gate.PromotionDecision) error
}

// Handler handles gate HTTP requests.
// Evaluations here are advisory: they run the same rule the rollout uses
// but never move a rollout. Operators and CI use them to preview whether
// a candidate would pass.
type Handler struct {
	policy  gate.Policy
	metrics MetricsSource
	auditor Auditor
	log     zerolog.Logger
}

// NewHandler creates a new gate handler
func NewHandler(policy gate.Policy, metrics MetricsSource, auditor Auditor, log zerolog.Logger) *Handler {
	return &Handler{
		policy:  policy,
		metrics: metrics,
		auditor: auditor,
		log:     log.With().Str("handler", "gate").Logger(),
	}
}

// HandleEvaluate compares two registered versions' latest offline metrics
// POST /api/gate/evaluate
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BaselineVersion  string `json:"baseline_version"`
		CandidateVersion string `json:"candidate_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	baselineVersion := strings.TrimSpace(req.BaselineVersion)
	candidateVersion := strings.TrimSpace(req.CandidateVersion)
	if baselineVersion == "" || candidateVersion == "" {
		h.writeError(w, http.StatusBadRequest, "baseline_version and candidate_version are required")
		return
	}

	baseline, err := h.metrics.LatestGateMetrics(baselineVersion)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	candidate, err := h.metrics.LatestGateMetrics(candidateVersion)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	decision, err := h.policy.Evaluate(baseline, candidate)
	if err != nil {
		if errors.Is(err, gate.ErrInvalidMetrics) || errors.Is(err, gate.ErrZeroBaselineRecall) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if auditErr := h.auditor.RecordDecision(baselineVersion, candidateVersion, decision); auditErr != nil {
		h.log.Error().Err(auditErr).Msg("Failed to record gate decision to audit ledger")
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"baseline":  baseline,
		"candidate": candidate,
		"decision":  decision,
		"status":    decision.Status(),
	})
}

// HandleDryRun evaluates caller-supplied metrics without touching the
// registry or the audit ledger
// POST /api/gate/dry-run
func (h *Handler) HandleDryRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Baseline  gate.ModelMetrics `json:"baseline"`
		Candidate gate.ModelMetrics `json:"candidate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decision, err := h.policy.Evaluate(req.Baseline, req.Candidate)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"decision": decision,
		"status":   decision.Status(),
	})
}

// HandlePolicy returns the active gate thresholds
// GET /api/gate/policy
func (h *Handler) HandlePolicy(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"min_recall_improvement": h.policy.MinRecallImprovement,
		"precision_retention":    h.policy.PrecisionRetention,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
