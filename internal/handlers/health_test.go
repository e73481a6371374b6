package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deepHealth(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	t.Helper()
	r := gin.New()
	r.GET("/health/deep", h.DeepHealth)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/deep", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestDeepHealthHealthy(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"redis":    PingFunc(func(context.Context) error { return nil }),
		"database": nil,
	}, true, func() string { return "closed" })

	code, resp := deepHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Dependencies["redis"])
	assert.Equal(t, "not configured", resp.Dependencies["database"])
	assert.Equal(t, "configured", resp.Dependencies["llm"])
	assert.Equal(t, "closed", resp.Dependencies["llm_circuit"])
}

func TestDeepHealthDegraded(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"nats": PingFunc(func(context.Context) error { return errors.New("connection closed") }),
	}, false, nil)

	code, resp := deepHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unhealthy: connection closed", resp.Dependencies["nats"])
	assert.Equal(t, "not configured", resp.Dependencies["llm"])
}
