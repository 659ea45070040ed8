package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/cards?url=https://example.com/", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimiter_AllowsBurstThenLimits(t *testing.T) {
	rl := NewRateLimiter(1, 3, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("203.0.113.7:5000"))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("203.0.113.7:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RateLimitExceeded")

	// Tokens refill over time.
	now = now.Add(time.Second)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("203.0.113.7:5002"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("198.51.100.1:1000"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("198.51.100.2:1000"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("198.51.100.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(30 * time.Second)
	rl.allow("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "203.0.113.9", clientIP(requestFrom("203.0.113.9:443")))
	assert.Equal(t, "2001:db8::1", clientIP(requestFrom("[2001:db8::1]:443")))
	assert.Equal(t, "unix", clientIP(requestFrom("unix")))
}
