// Package handlers provides HTTP handlers for the serving-mesh model config.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/manifest"
	"github.com/aristath/modelgate/internal/modules/rollout"
)

// RolloutSource provides the active rollout for manual re-syncs
type RolloutSource interface {
	Current() (*rollout.Rollout, error)
}

// Handler handles manifest HTTP requests
type Handler struct {
	service  *manifest.Service
	rollouts RolloutSource
	log      zerolog.Logger
}

// NewHandler creates a new manifest handler
func NewHandler(service *manifest.Service, rollouts RolloutSource, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		rollouts: rollouts,
		log:      log.With().Str("handler", "manifest").Logger(),
	}
}

// HandleGet returns the config currently on disk
// GET /api/manifest
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Current()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cfg == nil {
		h.writeError(w, http.StatusNotFound, "No model config has been written yet")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"baseline_storage_uri":    cfg.BaselineStorageURI,
		"candidate_storage_uri":   cfg.CandidateStorageURI,
		"traffic_split_baseline":  cfg.TrafficBaseline,
		"traffic_split_candidate": cfg.TrafficCandidate,
	})
}

// HandleSync regenerates the config from the active rollout.
// Normally the config tracks rollout events; this is the recovery path
// when the file was lost or edited by hand.
// POST /api/manifest/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ro, err := h.rollouts.Current()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ro == nil {
		h.writeError(w, http.StatusNotFound, "No active rollout to sync from")
		return
	}

	if err := h.service.SyncRollout(*ro); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"synced":     true,
		"rollout_id": ro.ID,
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
