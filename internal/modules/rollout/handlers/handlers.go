// Package handlers provides HTTP handlers for rollout management.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/rollout"
)

// Handler handles rollout HTTP requests
type Handler struct {
	service *rollout.Service
	log     zerolog.Logger
}

// NewHandler creates a new rollout handler
func NewHandler(service *rollout.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rollout").Logger(),
	}
}

// HandleStart starts a new rollout in the shadow stage
// POST /api/rollout/start
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BaselineVersion  string `json:"baseline_version"`
		CandidateVersion string `json:"candidate_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ro, err := h.service.Start(strings.TrimSpace(req.BaselineVersion), strings.TrimSpace(req.CandidateVersion))
	if err != nil {
		if strings.Contains(err.Error(), "already active") {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, ro)
}

// HandleCurrent returns the active rollout
// GET /api/rollout/current
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	ro, err := h.service.Current()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ro == nil {
		h.writeError(w, http.StatusNotFound, "No active rollout")
		return
	}

	h.writeJSON(w, http.StatusOK, ro)
}

// HandleList returns recent rollouts
// GET /api/rollout/history?limit=N
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	rollouts, err := h.service.List(limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rollouts": rollouts,
		"count":    len(rollouts),
	})
}

// HandleGet returns one rollout by id
// GET /api/rollout/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "Rollout id is required")
		return
	}

	ro, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ro == nil {
		h.writeError(w, http.StatusNotFound, "Rollout not found")
		return
	}

	h.writeJSON(w, http.StatusOK, ro)
}

// HandleAdvance evaluates the gate for the active rollout and advances it
// on a pass. The decision is returned either way so operators can see why
// a rollout is holding.
// POST /api/rollout/advance
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ro, decision, err := h.service.Advance()
	if err != nil {
		if strings.Contains(err.Error(), "no active rollout") {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rollout":  ro,
		"decision": decision,
		"status":   decision.Status(),
	})
}

// HandleRollback aborts the active rollout
// POST /api/rollout/rollback
func (h *Handler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		h.writeError(w, http.StatusBadRequest, "Rollback reason is required")
		return
	}

	ro, err := h.service.Rollback(req.Reason)
	if err != nil {
		if strings.Contains(err.Error(), "no active rollout") {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, ro)
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
