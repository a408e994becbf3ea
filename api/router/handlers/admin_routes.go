package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterAdminRoutes sets up the administrator endpoints. Every request is
// checked for a valid token carrying the ADMIN role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/admin", func(subRouter chi.Router) {
		subRouter.Use(h.RequireAdmin)
		subRouter.Get("/config", h.GetConfigHandler)
		subRouter.Post("/config", h.SaveConfigHandler)
		subRouter.Get("/columns", h.GetColumnsHandler)
		subRouter.Post("/upload", h.UploadHandler)
		subRouter.Get("/suggestions", h.SuggestionsHandler)
		subRouter.Get("/user-detail", h.UserDetailHandler)
	})
}
