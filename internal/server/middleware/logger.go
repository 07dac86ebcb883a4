package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/youfak/plaud-bridge/internal/pkg/ctxkey"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"go.uber.org/zap"
)

// Logger is the access log middleware.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// Skip high-frequency probe paths.
		if path == "/health" {
			return
		}

		latency := time.Since(startTime)
		eventType, _ := c.Request.Context().Value(ctxkey.WebhookEventType).(string)

		fields := []zap.Field{
			zap.String("component", "http.access"),
			zap.Int("status_code", c.Writer.Status()),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		}
		if eventType != "" {
			fields = append(fields, zap.String("event_type", eventType))
		}

		l := logger.FromContext(c.Request.Context()).With(fields...)
		l.Info("http request completed")

		if len(c.Errors) > 0 {
			l.Warn("http request contains gin errors", zap.String("errors", c.Errors.String()))
		}
	}
}
