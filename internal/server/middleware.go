package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/carepulse-dev/carepulse/internal/gate"
	"github.com/carepulse-dev/carepulse/internal/proxy"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware tags each request with a ULID, reusing a valid incoming one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := ulid.ParseStrict(id); err != nil {
			id = ulid.Make().String()
		}
		c.Set(proxy.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.logger.Info()
		if c.Writer.Status() >= 500 {
			event = s.logger.Error()
		}
		if present, ok := c.Get(gate.SessionPresentKey); ok {
			event = event.Bool(gate.SessionPresentKey, present.(bool))
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(proxy.RequestIDKey)).
			Msg("HTTP request")
	}
}
