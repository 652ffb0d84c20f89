// task-verify-system/handlers/progression_routes.go
package handlers

import (
	"errors"
	"strconv"

	"task-verify-system/middleware"
	"task-verify-system/models"
	"task-verify-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProgressionRoutes(app *fiber.App, rewards *services.RewardService) {
	secured := app.Group("/s/user", middleware.UserContextMiddleware())

	// Read-only: the reward engine is the sole writer of UserStats, so a user
	// with no row yet gets zero defaults here without one being created.
	secured.Get("/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var stats models.UserStats
		if err := rewards.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(fiber.Map{
					"user_id":        userID,
					"trust_score":    0,
					"rwis_score":     0,
					"xp_points":      0,
					"current_level":  1,
					"unlocked_zones": []string{},
					"category_stats": fiber.Map{},
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "DB error fetching stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(stats)
	})

	secured.Get("/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var earned []models.UserBadge
		if err := rewards.DB.Where("user_id = ?", userID).Find(&earned).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to get badges"})
		}

		var catalog []models.Badge
		if err := rewards.DB.Find(&catalog).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load badge catalog"})
		}
		byID := map[string]models.Badge{}
		for _, b := range catalog {
			byID[b.ID] = b
		}

		var response []fiber.Map
		for _, ub := range earned {
			badge := byID[ub.BadgeID]
			response = append(response, fiber.Map{
				"badge_id":    badge.ID,
				"code":        badge.Code,
				"name":        badge.Name,
				"description": badge.Description,
				"rarity":      badge.Rarity,
				"awarded_at":  ub.AwardedAt,
			})
		}
		return c.JSON(response)
	})

	secured.Get("/zones", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var stats models.UserStats
		unlocked := map[string]bool{}
		if err := rewards.DB.Where("user_id = ?", userID).First(&stats).Error; err == nil {
			for _, code := range stats.UnlockedZones {
				unlocked[code] = true
			}
		}

		var zones []models.Zone
		if err := rewards.DB.Find(&zones).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load zones"})
		}

		var response []fiber.Map
		for _, z := range zones {
			response = append(response, fiber.Map{
				"code":         z.Code,
				"name":         z.Name,
				"description":  z.Description,
				"requirements": z.Requirements,
				"unlocked":     unlocked[z.Code],
			})
		}
		return c.JSON(response)
	})

	secured.Get("/rewards", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		var ledger []models.RewardDistribution
		if err := rewards.DB.Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Find(&ledger).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch reward ledger"})
		}
		return c.JSON(ledger)
	})

	secured.Get("/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		if limit < 1 || limit > 200 {
			limit = 50
		}

		var history []models.WorkHistoryEntry
		if err := rewards.DB.Where("user_id = ?", userID).
			Order("completed_at DESC").
			Limit(limit).
			Find(&history).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch work history"})
		}
		return c.JSON(history)
	})
}
