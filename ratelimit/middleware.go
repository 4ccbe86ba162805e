package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"hrx/misc"
	"hrx/session"

	"github.com/gin-gonic/gin"
)

// Middleware keys the limiter by user id when a session is present,
// falling back to the caller IP for public endpoints.
func Middleware(p Preset) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if s := session.ExtractSessionFromGinContext(c); s.Token != "" {
			key = s.Identity.ID.String()
		}

		r := AllowFunc(c.Request.Context(), key, p)
		if !r.Allowed {
			retryAfter := int(time.Until(r.Reset).Seconds() + 0.5)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(r.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", r.Reset.UTC().Format(time.RFC3339))
			c.JSON(http.StatusTooManyRequests, &misc.ErrorBody{Code: "common.rate_limited", Message: "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
