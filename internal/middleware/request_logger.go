package middleware

import (
	"time"

	"chargedesk/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request after it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			logger.Error("request", args...)
		case status >= 400:
			logger.Warn("request", args...)
		default:
			logger.Info("request", args...)
		}
	}
}
