package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all audit routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.HandleList)
	})
}
