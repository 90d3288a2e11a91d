package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketLimiterAllowsBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 3, 0)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("client")
		assert.True(t, allowed, "request %d within burst", i)
	}
	allowed, info := limiter.Allow("client")
	assert.False(t, allowed)
	assert.Equal(t, 3, info.Limit)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
}

func TestTokenBucketLimiterIsolatesKeys(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1, 0)

	allowed, _ := limiter.Allow("a")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("a")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow("b")
	assert.True(t, allowed)
	assert.Equal(t, 2, limiter.BucketCount())
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	handler := RateLimit(limiter, DefaultRateLimitConfig())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	req.RemoteAddr = "10.0.0.1:4123"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitSkipsProbePaths(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	handler := RateLimit(limiter, DefaultRateLimitConfig())(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:4123"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
