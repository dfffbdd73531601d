package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all observation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/observation", func(r chi.Router) {
		r.Post("/outcomes", h.HandleRecord)
		r.Post("/resolve", h.HandleResolve)
		r.Get("/{model}/health", h.HandleHealth)
	})
}
