// Package handlers provides HTTP handlers for production outcome tracking.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/observation"
)

// Handler handles observation HTTP requests
type Handler struct {
	service *observation.Service
	log     zerolog.Logger
}

// NewHandler creates a new observation handler
func NewHandler(service *observation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "observation").Logger(),
	}
}

// HandleRecord ingests one prediction outcome
// POST /api/observation/outcomes
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model     string `json:"model"`
		RequestID string `json:"request_id"`
		Predicted int    `json:"predicted"`
		Actual    *int   `json:"actual"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.service.Record(observation.Outcome{
		Model:      strings.TrimSpace(req.Model),
		RequestID:  strings.TrimSpace(req.RequestID),
		Predicted:  req.Predicted,
		Actual:     req.Actual,
		ObservedAt: time.Now(),
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// HandleResolve attaches ground truth to a request's pending outcomes
// POST /api/observation/resolve
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequestID string `json:"request_id"`
		Actual    int    `json:"actual"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resolved, err := h.service.Resolve(strings.TrimSpace(req.RequestID), req.Actual)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if resolved == 0 {
		h.writeError(w, http.StatusNotFound, "No pending outcomes for request")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"resolved": resolved})
}

// HandleHealth returns the windowed health report for a model
// GET /api/observation/{model}/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	if model == "" {
		h.writeError(w, http.StatusBadRequest, "Model is required")
		return
	}

	report, err := h.service.Health(model)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report)
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
