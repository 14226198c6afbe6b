package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics receives one record per completed request; satisfied by
// prometheus.PipelineMetrics.
type HTTPMetrics interface {
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
}

// Metrics records method, route, status and duration for every request.
// The route template (c.FullPath) is used instead of the raw URL so label
// cardinality stays bounded.
func Metrics(rec HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
