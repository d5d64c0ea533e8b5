package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/justogm/user-gaze-track/internal/handlers"
)

// sessionKeyPrefix is enough of a session key to correlate log lines
// without writing the whole key to disk.
const sessionKeyPrefix = 8

// RequestLogger logs each request against the participant it belongs to.
// Page loads are logged at info so every session start and results view is
// on record; the high-rate session events only surface at debug or on error.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if point := c.Param("point"); point != "" {
			fields = append(fields, zap.String("point", point))
		}
		if s, ok := handlers.CurrentSession(c); ok {
			key := s.Key()
			if len(key) > sessionKeyPrefix {
				key = key[:sessionKeyPrefix]
			}
			fields = append(fields, zap.String("session", key), zap.Stringer("subject", s.Subject()))
		} else if id, ok := c.GetQuery("id"); ok {
			fields = append(fields, zap.String("subject", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		level, msg := classify(c.Request.Method, route, status)
		if ce := log.Check(level, msg); ce != nil {
			ce.Write(fields...)
		}
	}
}

func classify(method, route string, status int) (zapcore.Level, string) {
	quiet := strings.HasPrefix(route, "/session/") || strings.HasPrefix(route, "/assets/")
	switch {
	case status >= 500:
		return zapcore.ErrorLevel, "Server error"
	case status == http.StatusTooManyRequests:
		return zapcore.InfoLevel, "Export throttled"
	case status >= 400:
		return zapcore.WarnLevel, "Client error"
	case method == http.MethodGet && status == http.StatusOK && !quiet:
		return zapcore.InfoLevel, "Page served"
	default:
		return zapcore.DebugLevel, "Session event"
	}
}
