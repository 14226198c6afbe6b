package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

func TestServer_StartAndStop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := gin.New()
	handler.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	srv := NewServer(config.ServerConfig{
		Port:            0,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, handler, logging.NewNopLogger())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_HandlerExposed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := gin.New()

	srv := NewServer(config.ServerConfig{Port: 8080}, handler, logging.NewNopLogger())
	assert.NotNil(t, srv.Handler())
}
