package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimit enforces a fixed window of max requests per key. Keys are the
// authenticated user id when perUser is set and the client IP otherwise, so
// the limiter must run after authenticate() for per-user routes.
func (h *Handler) rateLimit(name string, max int64, window time.Duration, perUser bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}

		key := c.ClientIP()
		if perUser {
			if requester := requesterFrom(c); requester.ID != "" {
				key = requester.ID
			}
		}

		count, expiresAt := h.limiter.Increment("ratelimit:"+name+":"+key, window)
		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(max, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(expiresAt.Unix(), 10))

		if count > max {
			h.logger.Warnf("rate limit exceeded for %s on %s", key, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
