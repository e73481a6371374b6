package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quintet/api/internal/generation"
	"github.com/quintet/api/internal/models"
	"github.com/quintet/api/internal/resilience"
)

// Client-facing messages
const (
	MsgRateLimited         = "Too many requests, please try again later"
	MsgUpstreamUnavailable = "upstream temporarily unavailable"
	MsgGenerationFailed    = "Failed to generate code"
	MsgInternal            = "internal server error"
)

// RespondError aborts the request with a flat {"error": message} body
func RespondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message})
}

// RespondErrorWithRetry also sets Retry-After, in whole seconds
func RespondErrorWithRetry(c *gin.Context, status int, message string, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	RespondError(c, status, message)
}

// BadRequest sends a 400 error
func BadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, message)
}

// InternalError sends a 500 error
func InternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, message)
}

// TooManyRequests sends a 429 error
func TooManyRequests(c *gin.Context, retryAfterSeconds int) {
	RespondErrorWithRetry(c, http.StatusTooManyRequests, MsgRateLimited, retryAfterSeconds)
}

// UpstreamUnavailable sends a 503 error while the circuit breaker is open
func UpstreamUnavailable(c *gin.Context, retryAfterSeconds int) {
	RespondErrorWithRetry(c, http.StatusServiceUnavailable, MsgUpstreamUnavailable, retryAfterSeconds)
}

// RespondGenerationError maps a generation error onto its HTTP answer and
// records the underlying error on the gin context for the request logger
func RespondGenerationError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, generation.ErrEmptyPrompt):
		BadRequest(c, err.Error())
	case errors.Is(err, generation.ErrInvalidVariant):
		BadRequest(c, generation.ErrInvalidVariant.Error())
	case errors.Is(err, generation.ErrNotConfigured):
		InternalError(c, generation.ErrNotConfigured.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		UpstreamUnavailable(c, 0)
	case errors.Is(err, generation.ErrUpstream):
		InternalError(c, MsgGenerationFailed)
	default:
		InternalError(c, MsgGenerationFailed)
	}
}
