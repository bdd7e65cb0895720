package posbridge

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders/post", h.PostSale)
	r.Post("/orders/refund", h.PostRefund)
	r.Get("/profitability", h.Profitability)
}
