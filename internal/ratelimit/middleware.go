package ratelimit

import (
	"strconv"

	"fanforge-server/internal/apierrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Middleware enforces a per-user per-minute limit on the routes it wraps.
// It must run after the JWT middleware. Limiter failures fail open.
func (s *Service) Middleware(limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawUserID, ok := c.Get("User-ID")
		if !ok {
			c.Next()
			return
		}
		userID, err := uuid.Parse(rawUserID.(string))
		if err != nil {
			c.Next()
			return
		}

		result, err := s.CheckRateLimit(c.Request.Context(), userID, limit)
		if err != nil {
			s.logger.InfoWithError(c.Request.Context(), "rate limit check failed, allowing request", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfterMs/1000))
			apierrors.TooManyRequests(c, "Too many requests, try again shortly")
			c.Abort()
			return
		}
		c.Next()
	}
}
