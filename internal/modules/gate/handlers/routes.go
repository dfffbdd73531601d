package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all gate routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/gate", func(r chi.Router) {
		r.Post("/evaluate", h.HandleEvaluate)
		r.Post("/dry-run", h.HandleDryRun)
		r.Get("/policy", h.HandlePolicy)
	})
}
