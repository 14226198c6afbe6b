package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type fakeHTTPMetrics struct {
	requests  []recordedRequest
	durations []time.Duration
}

func (m *fakeHTTPMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.requests = append(m.requests, recordedRequest{method: method, path: path, status: statusCode})
	m.durations = append(m.durations, duration)
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	rec := &fakeHTTPMetrics{}
	r := newTestRouter(Metrics(rec))
	r.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/abc-123", nil))

	require.Len(t, rec.requests, 1)
	assert.Equal(t, recordedRequest{method: http.MethodGet, path: "/documents/:id", status: http.StatusOK}, rec.requests[0])
	assert.GreaterOrEqual(t, rec.durations[0], time.Duration(0))
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	rec := &fakeHTTPMetrics{}
	r := newTestRouter(Metrics(rec))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, rec.requests, 1)
	assert.Equal(t, "unmatched", rec.requests[0].path)
	assert.Equal(t, http.StatusNotFound, rec.requests[0].status)
}
