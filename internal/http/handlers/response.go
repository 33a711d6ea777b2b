// Package handlers – responses
//
// Every error leaves the API as an ErrorResponse with a stable code:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "order_not_payable",
//	  "message": "order is not payable"
//	}
//
// Server-side (5xx) failures are logged with the request-scoped logger.
// Gateway callbacks are the exception: the IPN always answers 200 with the
// gateway's own acknowledgment body.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bookstore-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// errorRule maps a sentinel error to its HTTP rendering.
type errorRule struct {
	target  error
	status  int
	code    string
	message string
}

// fail aborts with an ErrorResponse. 5xx responses are logged at error level.
func fail(c *gin.Context, status int, code, msg string) { failErr(c, status, code, msg, nil) }

// failErr is fail with the cause attached to the 5xx log line.
func failErr(c *gin.Context, status int, code, msg string, cause error) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error()
		if cause != nil {
			ev = ev.Err(cause)
		}
		ev.Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// failFor renders err with the first rule whose target it wraps, or with
// fallback.
func failFor(c *gin.Context, err error, rules []errorRule, fallback errorRule) {
	for _, r := range rules {
		if errors.Is(err, r.target) {
			fail(c, r.status, r.code, r.message)
			return
		}
	}
	failErr(c, fallback.status, fallback.code, fallback.message, err)
}

// Fail is the exported variant of fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
