package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/metrics"
	"github.com/quintet/api/internal/ratelimit"
)

// RateLimitConfig configures RateLimit
type RateLimitConfig struct {
	Limit int              // requests per window per client
	Now   func() time.Time // defaults to time.Now
}

// RateLimit rejects clients that exceeded Limit requests in the current window.
// The key is the client IP. A limiter error lets the request through.
func RateLimit(limiter ratelimit.Limiter, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	limitHeader := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.ClientIP()
		now := cfg.Now()

		allowed, err := limiter.Allow(ctx, key, cfg.Limit, now)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("client_ip", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		resetAt := limiter.ResetAt(now)
		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			metrics.RateLimitedTotal.Inc()
			c.Header("X-RateLimit-Remaining", "0")
			TooManyRequests(c, int(math.Ceil(resetAt.Sub(now).Seconds())))
			return
		}

		if remaining, err := limiter.Remaining(ctx, key, cfg.Limit, now); err == nil {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		c.Next()
	}
}
