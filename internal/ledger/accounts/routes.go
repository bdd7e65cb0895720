package accounts

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/hierarchy", h.Hierarchy)
	r.Get("/search", h.Search)
	r.Get("/{id}/balance", h.Balance)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/reparent", h.Reparent)
	r.Post("/{id}/deactivate", h.Deactivate)
}
