package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RyanBlaney/doppler-analysis/internal/metrics"
	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

const (
	// RequestIDHeader carries the request id in both directions
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	loggerKey    = "logger"
)

// requestID tags each request with an id and a request-scoped logger
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Set(loggerKey, s.logger.WithFields(logging.Fields{requestIDKey: id}))
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// accessLog logs and counts every finished request
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		requestLogger(c, s.logger).Info("Request completed", logging.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"bytes_out":   c.Writer.Size(),
		})

		tags := []string{"route:" + route, "status:" + strconv.Itoa(status)}
		s.recorder.Count(metrics.MetricRequests, tags...)
		s.recorder.Timing(metrics.MetricRequestDuration, elapsed, tags...)
	}
}

// requestLogger returns the logger attached by requestID, or fallback
func requestLogger(c *gin.Context, fallback logging.Logger) logging.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logging.Logger); ok {
			return l
		}
	}
	return fallback
}
