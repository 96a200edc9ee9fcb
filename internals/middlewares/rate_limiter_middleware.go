package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"essaysmaster_backend/internals/configs"
	helper "essaysmaster_backend/internals/helpers"
)

// Global limiter: every endpoint, keyed by IP
func GlobalRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        configs.GetEnvInt("RATE_LIMIT_GLOBAL_PER_MIN", 100),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonKindError(c, fiber.StatusTooManyRequests, "busy", "❌ Too many requests. Please try again later.")
		},
	})
}

// RoundRateLimiter throttles round processing per user; each call may
// spend minutes of model time.
func RoundRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        configs.GetEnvInt("RATE_LIMIT_ROUNDS_PER_MIN", 12),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if s, ok := c.Locals(helper.LocUserID).(string); ok && s != "" {
				return "u:" + s
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonKindError(c, fiber.StatusTooManyRequests, "busy", "❌ Too many revision requests. Wait a moment before trying again.")
		},
	})
}
