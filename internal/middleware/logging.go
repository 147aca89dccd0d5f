package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"dojo/internal/clock"
	"dojo/internal/dates"
	"dojo/internal/logger"
	"dojo/internal/uuid"
)

const requestIDKey = "requestID"

// RequestLogging returns a Gin middleware that logs each request with a
// request ID, method, path, status code and latency. A caller-supplied
// X-Request-ID is reused, and a day pinned by TestDate is logged as as_of.
func RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if !uuid.IsValid(requestID) {
			requestID = uuid.New()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		fields := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if day, ok := clock.Pinned(c.Request.Context()); ok {
			fields = append(fields, "as_of", dates.FormatDate(day))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Get().Errorw("request", fields...)
		case status >= 400:
			logger.Get().Warnw("request", fields...)
		default:
			logger.Get().Infow("request", fields...)
		}
	}
}
