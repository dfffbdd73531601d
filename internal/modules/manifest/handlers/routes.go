package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all manifest routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/manifest", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/sync", h.HandleSync)
	})
}
