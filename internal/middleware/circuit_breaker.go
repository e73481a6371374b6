package middleware

import (
	"math"

	"github.com/gin-gonic/gin"

	"github.com/quintet/api/internal/resilience"
)

// CircuitBreaker rejects requests with 503 while the upstream breaker is open
func CircuitBreaker(b *resilience.Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !b.Allow() {
			UpstreamUnavailable(c, int(math.Ceil(b.RetryAfter().Seconds())))
			return
		}
		c.Next()
	}
}
