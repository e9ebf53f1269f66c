package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// IPRateLimit returns middleware that limits requests by client IP. Limiter
// errors fail open: the request proceeds and the error surfaces in a
// response header.
func IPRateLimit(limiter *SlidingWindowLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := limiter.Allow(c.Context(), c.IP())
		if err != nil {
			c.Set("X-RateLimit-Error", err.Error())
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerWindow))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": fmt.Sprintf("Too many requests. Please retry after %d seconds.", retryAfter),
			})
		}

		return c.Next()
	}
}
