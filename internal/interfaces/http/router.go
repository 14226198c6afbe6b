package http

import (
	"github.com/gin-gonic/gin"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/prometheus"
	"github.com/bpointel/docintel/internal/interfaces/http/handlers"
	"github.com/bpointel/docintel/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies the route
// tree is built from.  Nil middleware/metrics fields are simply skipped.
type RouterConfig struct {
	ReviewHandler *handlers.ReviewHandler
	HealthHandler *handlers.HealthHandler

	CORS            *middleware.CORSConfig
	RateLimit       middleware.RateLimiter
	RateLimitConfig middleware.RateLimitConfig

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          middleware.HTTPMetrics

	Mode string // gin mode: "debug" | "release" | "test"
}

// NewRouter builds the review API route tree: public health probes, the
// metrics endpoint, and the v1 review resources.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.RateLimit != nil {
		r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateLimitConfig))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	if cfg.ReviewHandler != nil {
		v1 := r.Group("/api/v1")
		{
			v1.GET("/documents/by-hash/:hash", cfg.ReviewHandler.GetDocumentByHash)
			v1.GET("/documents/:id", cfg.ReviewHandler.GetDocument)
			v1.GET("/documents/:id/entities", cfg.ReviewHandler.ListEntities)
			v1.GET("/documents/:id/relationships", cfg.ReviewHandler.ListRelationships)
			v1.PATCH("/documents/:id/entities", cfg.ReviewHandler.CorrectEntity)
		}
	}

	return r
}

// ModeFromConfig maps the server config mode onto a gin mode string.
func ModeFromConfig(cfg config.ServerConfig) string {
	switch cfg.Mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
