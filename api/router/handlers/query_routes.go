package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterQueryRoutes sets up the public, rate limited lookup.
func (h *Handler) RegisterQueryRoutes(r chi.Router) {
	r.With(h.RateLimit).Post("/query/user", h.QueryUserHandler)
}
