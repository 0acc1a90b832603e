package middleware

import "github.com/gofiber/fiber/v2"

// NoCache marks every response as uncacheable, as mock data changes often.
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderPragma, "no-cache")
		c.Set(fiber.HeaderExpires, "-1")
		return c.Next()
	}
}
