package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/generation"
	"github.com/quintet/api/internal/handlers"
	"github.com/quintet/api/internal/llm"
	"github.com/quintet/api/internal/middleware"
	"github.com/quintet/api/internal/models"
	"github.com/quintet/api/internal/ratelimit"
	"github.com/quintet/api/internal/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingProvider struct{ calls int32 }

func (p *countingProvider) Complete(_ context.Context, prompt string) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	return "```html\n<!DOCTYPE html><p>" + strconv.Itoa(strings.Count(prompt, "Design personality")) + "</p>\n```", nil
}

func newTestEngine(t *testing.T, provider llm.Provider, limit int) *gin.Engine {
	t.Helper()
	breaker := resilience.NewBreaker(5, 2, 30*time.Second)

	svc := generation.NewService(provider, generation.WithBreaker(breaker))

	return New(Deps{
		Logger:      zap.NewNop(),
		ServiceName: "quintet-api-test",
		Generation:  handlers.NewGenerationHandler(svc, zap.NewNop()),
		Health:      handlers.NewHealthHandler(nil, svc.Configured(), func() string { return breaker.State().String() }),
		Limiter:     ratelimit.NewMemory(time.Hour),
		RateLimit:   middleware.RateLimitConfig{Limit: limit},
		Breaker:     breaker,
		MetricsPath: "/metrics",
		EnableDocs:  true,
	})
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "1.2.3.4:4000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateEndToEnd(t *testing.T) {
	p := &countingProvider{}
	r := newTestEngine(t, p, 100)

	w := postJSON(r, "/api/generate", `{"prompt":"A to-do list app with local storage and dark mode"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var resp models.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Codes, 5)
	for _, code := range resp.Codes {
		assert.Equal(t, "<!DOCTYPE html><p>1</p>", code)
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(&p.calls))

	w = postJSON(r, "/api/generate/variant", `{"prompt":"todo","variant_index":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 6, atomic.LoadInt32(&p.calls))
}

func TestGenerateWithoutCredential(t *testing.T) {
	r := newTestEngine(t, nil, 100)

	for _, path := range []string{"/api/generate", "/api/generate/variant"} {
		w := postJSON(r, path, `{"prompt":"todo","variant_index":0}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"GROQ_API_KEY not configured"}`, w.Body.String())
	}
}

func TestMissingPromptWithoutCredential(t *testing.T) {
	r := newTestEngine(t, nil, 100)

	for _, body := range []string{`{}`, `{"prompt":""}`} {
		w := postJSON(r, "/api/generate", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, body)
		assert.JSONEq(t, `{"error":"GROQ_API_KEY not configured"}`, w.Body.String())
	}
}

func TestGenerateRateLimited(t *testing.T) {
	p := &countingProvider{}
	r := newTestEngine(t, p, 2)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, postJSON(r, "/api/generate/variant", `{"prompt":"x","variant_index":0}`).Code)
	}
	w := postJSON(r, "/api/generate/variant", `{"prompt":"x","variant_index":0}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too many requests, please try again later"}`, w.Body.String())
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls))
}

func TestAuxiliaryRoutes(t *testing.T) {
	r := newTestEngine(t, &countingProvider{}, 1)

	for _, path := range []string{"/health", "/health/deep", "/api/variants", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	// GETs are never rate limited
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/variants", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
