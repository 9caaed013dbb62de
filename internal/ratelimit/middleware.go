package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"tikozap-platform/internal/metrics"
	"tikozap-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware enforces a limit per client identity on the wrapped routes.
//
// Fail-open on store errors: a broken Redis must degrade the limiter, not
// take the public endpoint down with it.
func Middleware(store Store, namespace string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := store.Check(c.Request.Context(), namespace, ClientIdentity(c.Request), limit, window)
		if err != nil {
			logger.FromGin(c).Error("rate limit check failed", "namespace", namespace, "err", err)
			c.Next()
			return
		}

		metrics.RateLimitDecisions.WithLabelValues(namespace, strconv.FormatBool(res.Allowed)).Inc()

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": res.RetryAfterSeconds,
			})
			return
		}
		c.Next()
	}
}
