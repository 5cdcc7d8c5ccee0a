package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledWhenKeyEmpty(t *testing.T) {
	h := Auth("")(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthAcceptsBearerAndAPIKeyHeaders(t *testing.T) {
	h := Auth("sekrit")(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.Header.Set("X-API-Key", "sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsMissingOrWrongToken(t *testing.T) {
	h := Auth("sekrit")(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

func TestRateLimitDeniesOverLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	h := RateLimit(limiter, 10, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpenOnBackendError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	h := RateLimit(limiter, 10, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeysByForwardedClientIP(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	h := RateLimit(limiter, 10, time.Minute)(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), r)

	r = httptest.NewRequest(http.MethodGet, "/api/books", nil)
	r.RemoteAddr = "192.0.2.9:51234"
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Len(t, limiter.keys, 2)
	assert.Equal(t, "ratelimit:api:203.0.113.7", limiter.keys[0])
	assert.Equal(t, "ratelimit:api:192.0.2.9", limiter.keys[1])
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h := CORS([]string{"https://dash.example.com"})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	h := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	r := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	r.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://anywhere.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
