// Package admin provides the administrative HTTP handlers for stored cards.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/a506488043/custom-card/internal/api/handlers"
	"github.com/a506488043/custom-card/internal/core/cards"
)

// maxEditBodyBytes bounds PATCH request bodies.
const maxEditBodyBytes = 64 << 10

// Handler serves the administrative card endpoints
type Handler struct {
	service cards.Service
}

// NewHandler creates a new admin handler
func NewHandler(service cards.Service) *Handler {
	return &Handler{service: service}
}

// HandleList returns one page of stored cards
// GET /admin/cards?page=1&per_page=20&q=search
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := optionalInt(q.Get("page"))
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "page must be an integer")
		return
	}
	perPage, err := optionalInt(q.Get("per_page"))
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "per_page must be an integer")
		return
	}

	result, err := h.service.List(r.Context(), cards.ListOptions{
		Search:  q.Get("q"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, result)
}

// HandleEdit replaces the title, image and description of a stored card
// PATCH /admin/cards/{hash}
//
// Request body: { "title": "...", "image": "...", "description": "..." }
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var fields cards.Fields
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditBodyBytes)).Decode(&fields); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	card, err := h.service.Edit(r.Context(), chi.URLParam(r, "hash"), fields)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, card)
}

// HandleDelete removes one card from the store and every cache tier
// DELETE /admin/cards/{hash}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "hash")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFlush removes every card
// DELETE /admin/cards
func (h *Handler) HandleFlush(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Flush(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	slog.Info("[CARDS-API] card store flushed", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus reports cache tier, store and circuit breaker health
// GET /admin/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, h.service.Status(r.Context()))
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// handleServiceError converts service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cards.ErrNotFound):
		handlers.WriteError(w, http.StatusNotFound, "CardNotFound", "Card not found")
	case errors.Is(err, cards.ErrInvalidHash):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid card hash")
	case errors.Is(err, cards.ErrInvalidURL):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidURL", err.Error())
	default:
		slog.Error("[CARDS-API] unhandled admin service error", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalError", "An internal error occurred")
	}
}
