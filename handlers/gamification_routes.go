// handlers/gamification_routes.go
package handlers

import (
	"time"

	"bizquits/middleware"
	"bizquits/services"

	"github.com/gofiber/fiber/v2"
)

// SetupGamificationRoutes exposes the ledger read side: catalog, stats and unlocks.
func SetupGamificationRoutes(app *fiber.App, ledger *services.GamificationService) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	})

	app.Get("/achievements", func(c *fiber.Ctx) error {
		achievements, err := ledger.ListAchievements(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(achievements)
	})

	// 🔐 user routes need the gateway's user context
	user := middleware.UserContextMiddleware()

	app.Get("/user/stats", user, func(c *fiber.Ctx) error {
		stats, err := ledger.GetStats(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(stats)
	})

	app.Get("/user/achievements", user, func(c *fiber.Ctx) error {
		unlocks, err := ledger.ListUserAchievements(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get achievements",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(unlocks))
		for _, ua := range unlocks {
			response = append(response, fiber.Map{
				"id":             ua.ID,
				"achievement_id": ua.AchievementID,
				"code":           ua.Achievement.Code,
				"name":           ua.Achievement.Name,
				"description":    ua.Achievement.Description,
				"badge_icon":     ua.Achievement.BadgeIcon,
				"xp_reward":      ua.Achievement.XPReward,
				"unlocked_at":    ua.UnlockedAt,
			})
		}
		return c.JSON(response)
	})
}
