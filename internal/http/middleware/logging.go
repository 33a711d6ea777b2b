// Package middleware contains the gin middleware shared by every route:
// correlation IDs, redacted access logs, panic recovery, Prometheus metrics,
// idempotency keys, rate limiting and security headers.
//
// Recommended order (see httpapi.RegisterRoutes):
//  1. RequestID
//  2. RedactingLogger (attaches the request-scoped logger)
//  3. Recovery
//  4. Metrics
//  5. IdempotencyValidator
//  6. RateLimiter
//  7. CORS and SecurityHeaders
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the gin context key holding the correlation ID.
	requestIDKey = "requestID"
	// requestIDHeader propagates the correlation ID in both directions.
	requestIDHeader = "X-Request-ID"
	// maxRequestIDLen caps client-supplied IDs; longer ones are replaced.
	maxRequestIDLen = 128

	loggerKey = "logger"

	// UserIDKey is the gin context key set by upstream authentication.
	UserIDKey = "userID"
	// UserIDHeader is the development identity header.
	UserIDHeader = "X-User-ID"
	// AnonymousUser is the identity used when nothing else is available.
	AnonymousUser = "demo-user"
)

// RequestID reuses the caller's X-Request-ID when it is sane, otherwise it
// generates a UUIDv4. The ID is echoed on the response and stored in the
// gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation ID for c, preferring the response
// header written by RequestID.
func RequestIDFrom(c *gin.Context) string {
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if c.Request != nil {
		return c.GetHeader(requestIDHeader)
	}
	return ""
}

// UserID resolves the caller identity: the "userID" context value set by
// authentication middleware, then the X-User-ID header, then AnonymousUser.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader(UserIDHeader)); h != "" {
			return h
		}
	}
	return AnonymousUser
}

// Recovery turns panics into the standard JSON 500 envelope and logs the
// stack with the request's correlation ID.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by RedactingLogger,
// or the global logger when none is attached. It never returns nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.Logger
	return &l
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
