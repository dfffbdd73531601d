// Package handlers provides HTTP handlers for the audit ledger.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/audit"
)

// Handler handles audit HTTP requests
type Handler struct {
	repo *audit.Repository
	log  zerolog.Logger
}

// NewHandler creates a new audit handler
func NewHandler(repo *audit.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "audit").Logger(),
	}
}

// HandleList returns audit entries, newest first
// GET /api/audit?kind=gate_decision&limit=N
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind := audit.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", audit.KindGateDecision, audit.KindStageTransition, audit.KindRollback, audit.KindAlert:
	default:
		h.writeError(w, http.StatusBadRequest, "Unknown audit kind")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.repo.List(kind, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
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
