// middleware/auth.go
package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// PrincipalContextMiddleware extracts the authenticated principal set by
// the Gateway. The auth provider itself (email/password identity) lives
// upstream; this service only ever sees the opaque id.
func PrincipalContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principalID := c.Get("X-User-ID")
		if principalID == "" {
			log.Printf("❌ [PRINCIPAL_CTX] X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		c.Locals("principal_id", principalID)
		return c.Next()
	}
}
