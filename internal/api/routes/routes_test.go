package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	adminhandlers "github.com/a506488043/custom-card/internal/api/handlers/admin"
	cardhandlers "github.com/a506488043/custom-card/internal/api/handlers/cards"
	"github.com/a506488043/custom-card/internal/api/middleware"
	"github.com/a506488043/custom-card/internal/core/cards"
)

const testHash = "0123456789abcdef0123456789abcdef"

// stubService answers every call with fixed data and records what was called.
type stubService struct {
	calls []string
}

func (s *stubService) Resolve(_ context.Context, rawURL string, _ cards.Fields) (*cards.Card, error) {
	s.calls = append(s.calls, "resolve")
	return &cards.Card{URL: rawURL, URLHash: cards.HashURL(rawURL), Title: "Stub", ExpiresAt: time.Now()}, nil
}

func (s *stubService) List(context.Context, cards.ListOptions) (*cards.ListResult, error) {
	s.calls = append(s.calls, "list")
	return &cards.ListResult{Items: []*cards.Card{}, Page: 1, PerPage: 20}, nil
}

func (s *stubService) Delete(context.Context, string) error {
	s.calls = append(s.calls, "delete")
	return nil
}

func (s *stubService) Flush(context.Context) error {
	s.calls = append(s.calls, "flush")
	return nil
}

func (s *stubService) Edit(_ context.Context, urlHash string, f cards.Fields) (*cards.Card, error) {
	s.calls = append(s.calls, "edit")
	return &cards.Card{URLHash: urlHash, Title: f.Title}, nil
}

func (s *stubService) Status(context.Context) cards.Status {
	s.calls = append(s.calls, "status")
	return cards.Status{}
}

func newTestRouter(svc *stubService, limit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	RegisterCardRoutes(r, cardhandlers.NewHandler(svc), limit)
	RegisterAdminRoutes(r, adminhandlers.NewHandler(svc), middleware.NewAdminAuthMiddleware("token"))
	return r
}

func TestRoutes_Dispatch(t *testing.T) {
	tests := []struct {
		method     string
		path       string
		body       string
		auth       bool
		wantStatus int
		wantCall   string
	}{
		{http.MethodGet, "/cards?url=https://example.com/", "", false, http.StatusOK, "resolve"},
		{http.MethodGet, "/cards/render?url=https://example.com/", "", false, http.StatusOK, "resolve"},
		{http.MethodGet, "/admin/status", "", true, http.StatusOK, "status"},
		{http.MethodGet, "/admin/cards", "", true, http.StatusOK, "list"},
		{http.MethodDelete, "/admin/cards", "", true, http.StatusNoContent, "flush"},
		{http.MethodPatch, "/admin/cards/" + testHash, `{"title":"x"}`, true, http.StatusOK, "edit"},
		{http.MethodDelete, "/admin/cards/" + testHash, "", true, http.StatusNoContent, "delete"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			svc := &stubService{}
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth {
				req.Header.Set("Authorization", "Bearer token")
			}
			rec := httptest.NewRecorder()

			newTestRouter(svc, nil).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, []string{tt.wantCall}, svc.calls)
		})
	}
}

func TestRoutes_AdminRequiresToken(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()

	newTestRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/cards", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.calls)
}

func TestRoutes_LimitAppliesOnlyToCards(t *testing.T) {
	svc := &stubService{}
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := newTestRouter(svc, deny)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cards?url=https://example.com/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
