package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/library-backend/pkg/config"
)

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2})
	handler := RateLimit(limiter, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	other.RemoteAddr = "8.8.8.8:1000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1})
	handler := RateLimit(limiter, nil)(okHandler())
	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
	}
}

func TestSweepForgetsIdleClients(t *testing.T) {
	now := time.Now()
	limiter := NewIPRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1})
	limiter.now = func() time.Time { return now }

	limiter.Allow("1.1.1.1")
	now = now.Add(clientIdleTimeout + time.Second)
	limiter.Allow("2.2.2.2")
	limiter.Sweep()

	assert.Len(t, limiter.clients, 1)
	assert.Contains(t, limiter.clients, "2.2.2.2")
}
