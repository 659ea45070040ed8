// Package cards provides the public HTTP handlers for link-preview cards.
package cards

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a506488043/custom-card/internal/api/handlers"
	"github.com/a506488043/custom-card/internal/core/cards"
)

// Resolver is the part of the card service the public handlers need.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string, overrides cards.Fields) (*cards.Card, error)
}

// Handler serves card resolution requests
type Handler struct {
	resolver Resolver
}

// NewHandler creates a new card handler
func NewHandler(resolver Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// HandleResolve resolves a card and returns it as JSON
// GET /cards?url=...&title=...&image=...&description=...
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	card, ok := h.resolve(w, r)
	if !ok {
		return
	}
	handlers.WriteJSON(w, http.StatusOK, card)
}

// resolve runs the shared request parsing and resolution. On failure it has
// already written the error response.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*cards.Card, bool) {
	q := r.URL.Query()
	rawURL := q.Get("url")
	if rawURL == "" {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "url parameter is required")
		return nil, false
	}

	card, err := h.resolver.Resolve(r.Context(), rawURL, cards.Fields{
		Title:       q.Get("title"),
		Image:       q.Get("image"),
		Description: q.Get("description"),
	})
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return card, true
}

// handleServiceError converts service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	var ve *cards.ValidationError
	switch {
	case errors.As(err, &ve):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidURL", ve.Error())
	case errors.Is(err, context.DeadlineExceeded):
		handlers.WriteError(w, http.StatusGatewayTimeout, "Timeout", "Card resolution timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody is reading the response.
		slog.Debug("[CARDS-API] request canceled during resolution")
	default:
		slog.Error("[CARDS-API] unhandled service error", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalError", "An internal error occurred")
	}
}
