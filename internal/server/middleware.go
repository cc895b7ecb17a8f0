// internal/server/middleware.go
package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/common/metrics"
)

const requestIDHeader = "X-Request-ID"

// RequestRecorder feeds the otel meter. Satisfied by
// observability.Observability; nil disables the recording.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, status string)
	RecordRequestDuration(ctx context.Context, duration time.Duration, status string)
}

// RequestID assigns every request an id, honoring one provided by the
// caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request and records the duration metrics.
func RequestLogger(recorder RequestRecorder, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(status),
		).Observe(duration.Seconds())
		if recorder != nil {
			recorder.RecordRequest(c.Request.Context(), strconv.Itoa(status))
			recorder.RecordRequestDuration(c.Request.Context(), duration, strconv.Itoa(status))
		}

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"duration":  duration.String(),
			"requestId": c.GetString("requestId"),
		}
		if status >= 500 {
			log.Error("request failed", fields)
		} else {
			log.Info("request handled", fields)
		}
	}
}

// Recovery converts panics into a generic 500 response.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", map[string]interface{}{
					"panic":     fmt.Sprintf("%v", r),
					"path":      c.Request.URL.Path,
					"requestId": c.GetString("requestId"),
				})
				c.AbortWithStatusJSON(500, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}
