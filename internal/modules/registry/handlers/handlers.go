// Package handlers provides HTTP handlers for the model registry.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/aristath/modelgate/internal/modules/registry"
)

// Handler handles registry HTTP requests
type Handler struct {
	service *registry.Service
	log     zerolog.Logger
}

// NewHandler creates a new registry handler
func NewHandler(service *registry.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "registry").Logger(),
	}
}

// HandleRegisterVersion registers or updates a model version
// POST /api/registry/versions
func (h *Handler) HandleRegisterVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version     string `json:"version"`
		DisplayName string `json:"display_name"`
		StorageURI  string `json:"storage_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	v := registry.ModelVersion{
		Version:     strings.TrimSpace(req.Version),
		DisplayName: strings.TrimSpace(req.DisplayName),
		StorageURI:  strings.TrimSpace(req.StorageURI),
		CreatedAt:   time.Now(),
	}
	if err := h.service.RegisterVersion(v); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, v)
}

// HandleListVersions returns all registered model versions
// GET /api/registry/versions
func (h *Handler) HandleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.service.ListVersions()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": versions,
		"count":  len(versions),
	})
}

// HandleGetVersion returns one model version
// GET /api/registry/versions/{version}
func (h *Handler) HandleGetVersion(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	v, err := h.service.GetVersion(version)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if v == nil {
		h.writeError(w, http.StatusNotFound, "Model version not found")
		return
	}

	h.writeJSON(w, http.StatusOK, v)
}

// HandleRecordMetrics stores an offline evaluation for a version
// POST /api/registry/versions/{version}/metrics
func (h *Handler) HandleRecordMetrics(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	var req struct {
		Precision   float64 `json:"precision"`
		Recall      float64 `json:"recall"`
		F1          float64 `json:"f1"`
		AUC         float64 `json:"auc"`
		SampleCount int     `json:"sample_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.service.RecordMetrics(registry.MetricsRecord{
		Version:     version,
		Precision:   req.Precision,
		Recall:      req.Recall,
		F1:          req.F1,
		AUC:         req.AUC,
		SampleCount: req.SampleCount,
		EvaluatedAt: time.Now(),
	})
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, gate.ErrInvalidMetrics) && !strings.Contains(err.Error(), "required") {
			status = http.StatusInternalServerError
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// HandleMetricsHistory returns recent evaluations for a version
// GET /api/registry/versions/{version}/metrics?limit=N
func (h *Handler) HandleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := h.service.MetricsHistory(version, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": version,
		"metrics": history,
		"count":   len(history),
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
