// middleware/gateway.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware validates the Bearer token sent by the API gateway.
// Paths in skip (e.g. /health) are let through without a token.
func GatewayAuthMiddleware(expectedToken string, skip ...string) fiber.Handler {
	if expectedToken == "" {
		log.Fatal("❌ GATEWAY_SERVICE_TOKEN is not set, service cannot authenticate Gateway")
	}
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(c *fiber.Ctx) error {
		if skipped[c.Path()] {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// Accept both "Bearer <token>" and the raw token
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if token != expectedToken {
			log.Printf("❌ [GATEWAY_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
