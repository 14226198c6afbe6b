package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/pkg/errors"
)

func healthRouter(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func upChecker(name string) HealthChecker {
	return CheckerFunc{ComponentName: name, Probe: func(context.Context) error { return nil }}
}

func downChecker(name string) HealthChecker {
	return CheckerFunc{ComponentName: name, Probe: func(context.Context) error {
		return errors.New(errors.ErrCodeServiceUnavailable, name+" unreachable")
	}}
}

func TestLiveness_AlwaysOK(t *testing.T) {
	r := healthRouter(NewHealthHandler("1.2.3", downChecker("postgres")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestReadiness_AllUp(t *testing.T) {
	r := healthRouter(NewHealthHandler("dev", upChecker("postgres"), upChecker("redis")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "up", resp.Components["postgres"].Status)
	assert.Equal(t, "up", resp.Components["redis"].Status)
}

func TestReadiness_ComponentDown(t *testing.T) {
	r := healthRouter(NewHealthHandler("dev", upChecker("postgres"), downChecker("redis")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "down", resp.Components["redis"].Status)
	assert.NotEmpty(t, resp.Components["redis"].Error)
}

type fakeHealthMetrics struct {
	mu     sync.Mutex
	states map[string]bool
}

func (m *fakeHealthMetrics) SetHealth(component string, up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[string]bool)
	}
	m.states[component] = up
}

func TestReadiness_PublishesHealthGauges(t *testing.T) {
	metrics := &fakeHealthMetrics{}
	h := NewHealthHandler("dev", upChecker("postgres"), downChecker("redis")).WithMetrics(metrics)
	r := healthRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, map[string]bool{"postgres": true, "redis": false}, metrics.states)
}

func TestReadiness_NoCheckers(t *testing.T) {
	r := healthRouter(NewHealthHandler("dev"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
