package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rollout routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rollout", func(r chi.Router) {
		r.Post("/start", h.HandleStart)
		r.Get("/current", h.HandleCurrent)
		r.Get("/history", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Post("/advance", h.HandleAdvance)
		r.Post("/rollback", h.HandleRollback)
	})
}
