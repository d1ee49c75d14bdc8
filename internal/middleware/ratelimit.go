package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/ratelimit"
)

// PublicRateLimit throttles unauthenticated routes per client IP using
// the given limiter. Rate headers are set on every response; a denied
// request gets 429 with Retry-After.
func PublicRateLimit(limiter ratelimit.Limiter, prefix string) echo.MiddlewareFunc {
	if limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			dec := limiter.Allow(c.Request().Context(), ratelimit.Key(prefix, "ip", ip))

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				secs := int(math.Ceil(dec.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": echo.Map{"code": "RATE_LIMITED", "message": "too many requests", "retry_after": secs},
				})
			}
			return next(c)
		}
	}
}
