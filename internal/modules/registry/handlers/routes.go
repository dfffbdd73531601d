package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all registry routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/registry", func(r chi.Router) {
		r.Post("/versions", h.HandleRegisterVersion)
		r.Get("/versions", h.HandleListVersions)
		r.Get("/versions/{version}", h.HandleGetVersion)
		r.Post("/versions/{version}/metrics", h.HandleRecordMetrics)
		r.Get("/versions/{version}/metrics", h.HandleMetricsHistory)
	})
}
