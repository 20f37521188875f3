// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID                = "user_id"
	LocalUserRoles             = "user_roles"
	LocalEntrepreneurProfileID = "entrepreneur_profile_id"
)

// UserContextMiddleware extracts the caller identity forwarded by the gateway.
// X-User-ID is mandatory; roles and the entrepreneur profile are optional.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserRoles, roles)
		c.Locals(LocalEntrepreneurProfileID, strings.TrimSpace(c.Get("X-Entrepreneur-Profile-ID")))
		return c.Next()
	}
}

// UserID returns the caller set by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// EntrepreneurProfileID returns the caller's business profile, or "" for clients.
func EntrepreneurProfileID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalEntrepreneurProfileID).(string)
	return id
}

// HasRole reports whether the gateway granted the caller role.
func HasRole(c *fiber.Ctx, role string) bool {
	roles, _ := c.Locals(LocalUserRoles).([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
