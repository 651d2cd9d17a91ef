package log

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

// HTTPMiddleware logs one line per request through logger. Requests answered
// with a 5xx status are logged at error level.
func HTTPMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
			LogHTTPRequest(logger, p.Request.Method, p.URL.Path, p.StatusCode, time.Since(p.TimeStamp), p.Size,
				p.Request.RemoteAddr, p.Request.UserAgent())
		})
	}
}

// LogHTTPRequest writes a structured access log entry.
func LogHTTPRequest(logger *zap.SugaredLogger, method, path string, status int, duration time.Duration, size int, remoteAddr, userAgent string) {
	fields := []interface{}{
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size", size,
		"remote_addr", remoteAddr,
		"user_agent", userAgent,
	}

	if status >= http.StatusInternalServerError {
		logger.Errorw("http request", fields...)
		return
	}
	logger.Debugw("http request", fields...)
}
