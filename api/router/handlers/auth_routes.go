package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterAuthRoutes sets up account registration and token issuance.
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Route("/auth", func(subRouter chi.Router) {
		subRouter.Post("/register", h.RegisterHandler)
		subRouter.Post("/login", h.LoginHandler)
	})
}
