package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/generation"
	"github.com/quintet/api/internal/ratelimit"
	"github.com/quintet/api/internal/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doGet(r http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestRateLimitRejectsEleventhRequest(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewMemory(time.Hour)
	r := newEngine(RateLimit(limiter, RateLimitConfig{Limit: 10, Now: func() time.Time { return now }}, zap.NewNop()))

	for i := 0; i < 10; i++ {
		w := doGet(r, "1.2.3.4:5555")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, fmt.Sprint(9-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := doGet(r, "1.2.3.4:5555")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests, please try again later", errorBody(t, w))
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// other clients are unaffected
	assert.Equal(t, http.StatusOK, doGet(r, "5.6.7.8:5555").Code)

	now = now.Add(time.Hour)
	assert.Equal(t, http.StatusOK, doGet(r, "1.2.3.4:5555").Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Time) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenLimiter) Remaining(context.Context, string, int, time.Time) (int, error) {
	return 0, errors.New("redis down")
}
func (brokenLimiter) ResetAt(now time.Time) time.Time { return now }

func TestRateLimitFailsOpen(t *testing.T) {
	r := newEngine(RateLimit(brokenLimiter{}, RateLimitConfig{Limit: 1}, zap.NewNop()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "1.2.3.4:1").Code)
	}
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	b := resilience.NewBreaker(1, 1, 30*time.Second)
	r := newEngine(CircuitBreaker(b))

	assert.Equal(t, http.StatusOK, doGet(r, "1.2.3.4:1").Code)

	b.RecordFailure()
	w := doGet(r, "1.2.3.4:1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "upstream temporarily unavailable", errorBody(t, w))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen = generation.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", seen)

	w = doGet(r, "1.2.3.4:1")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, w.Header().Get(RequestIDHeader), seen)
}

func TestRespondGenerationError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"blank prompt", generation.ErrEmptyPrompt, http.StatusBadRequest, "prompt is required"},
		{"bad index", fmt.Errorf("%w: out of range", generation.ErrInvalidVariant), http.StatusBadRequest, "invalid variant index"},
		{"not configured", generation.ErrNotConfigured, http.StatusInternalServerError, "GROQ_API_KEY not configured"},
		{"breaker open", fmt.Errorf("variant 1: %w", resilience.ErrCircuitOpen), http.StatusServiceUnavailable, "upstream temporarily unavailable"},
		{"upstream", fmt.Errorf("%w: variant 0: %w", generation.ErrUpstream, errors.New("401")), http.StatusInternalServerError, "Failed to generate code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			RespondGenerationError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, errorBody(t, w))
		})
	}
}
