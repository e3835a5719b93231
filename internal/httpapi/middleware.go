package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rickgao/bankrates/internal/model"
)

// ResponseRecorder receives one entry per served response.
type ResponseRecorder interface {
	Record(entry model.ResponseLog) bool
}

type contextKey string

const loggerKey = contextKey("logger")

// RequestLogging injects a request-scoped logger and sets X-Request-ID.
// An incoming X-Request-ID is reused.
func RequestLogging(baseLogger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		requestLogger := baseLogger.With(
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		c.Header("X-Request-ID", requestID)
		c.Set(string(loggerKey), requestLogger)

		c.Next()

		requestLogger.Info("request completed",
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

// ResponseLogging hands every response to rec.
func ResponseLogging(rec ResponseRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		rec.Record(model.ResponseLog{
			Path:         c.Request.URL.Path,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start).Milliseconds(),
			CreatedAt:    start.UTC(),
		})
	}
}

// loggerFrom returns the request-scoped logger, or the default logger.
func loggerFrom(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(string(loggerKey)); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
