package routes

import (
	"github.com/go-chi/chi/v5"

	adminhandlers "github.com/a506488043/custom-card/internal/api/handlers/admin"
	"github.com/a506488043/custom-card/internal/api/middleware"
)

// RegisterAdminRoutes registers the administrative endpoints behind bearer
// token authentication.
func RegisterAdminRoutes(r chi.Router, handler *adminhandlers.Handler, auth *middleware.AdminAuthMiddleware) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin)

		r.Get("/status", handler.HandleStatus)
		r.Get("/cards", handler.HandleList)
		r.Delete("/cards", handler.HandleFlush)
		r.Patch("/cards/{hash}", handler.HandleEdit)
		r.Delete("/cards/{hash}", handler.HandleDelete)
	})
}
