package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	cardhandlers "github.com/a506488043/custom-card/internal/api/handlers/cards"
)

// RegisterCardRoutes registers the public card endpoints on the router.
//
// Routes:
//   - GET /cards         card as JSON
//   - GET /cards/render  card as an HTML fragment
//
// limit wraps both routes; pass nil to leave them unlimited.
func RegisterCardRoutes(r chi.Router, handler *cardhandlers.Handler, limit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Get("/cards", handler.HandleResolve)
		r.Get("/cards/render", handler.HandleRender)
	})
}
