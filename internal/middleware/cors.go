package middleware

import (
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/origin"
	"github.com/gofiber/fiber/v2"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, Cookie"
)

// CORS echoes an allow-listed Origin, or the default origin otherwise, with
// credentials allowed. Preflight requests end here with 200 and no body.
func CORS(policy *origin.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Vary(fiber.HeaderOrigin)
		c.Set(fiber.HeaderAccessControlAllowOrigin, policy.Resolve(c.Get(fiber.HeaderOrigin)))
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)

		if c.Method() == fiber.MethodOptions {
			c.Status(fiber.StatusOK)
			return nil
		}
		return c.Next()
	}
}
