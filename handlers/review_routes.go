// task-verify-system/handlers/review_routes.go
package handlers

import (
	"task-verify-system/middleware"
	"task-verify-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupReviewRoutes(app *fiber.App, reviews *services.ReviewQueueService) {
	secured := app.Group("/s/review", middleware.UserContextMiddleware(), middleware.RequireRole("reviewer"))

	secured.Get("/queue", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		items, err := reviews.PendingReviews(reviewerID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"items": items})
	})

	secured.Post("/:id/assign", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid queue item ID"})
		}
		if err := reviews.Assign(c.Context(), id, reviewerID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Assigned", "queue_item_id": id})
	})

	secured.Post("/:id/approve", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		id := c.Params("id")

		var req struct {
			Rating   *int   `json:"rating"`
			Feedback string `json:"feedback"`
		}
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rating must be 1–5"})
		}

		if err := reviews.ApproveSubmission(c.Context(), id, reviewerID, req.Rating, req.Feedback); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Approved", "queue_item_id": id})
	})

	secured.Post("/:id/reject", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		id := c.Params("id")

		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil || req.Reason == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rejection requires a reason"})
		}

		if err := reviews.RejectSubmission(c.Context(), id, reviewerID, req.Reason); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Rejected", "queue_item_id": id})
	})

	secured.Post("/:id/request-revisions", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		id := c.Params("id")

		var req struct {
			Notes string `json:"notes"`
		}
		if err := c.BodyParser(&req); err != nil || req.Notes == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Revision request requires notes"})
		}

		if err := reviews.RequestRevisions(c.Context(), id, reviewerID, req.Notes); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Revisions requested", "queue_item_id": id})
	})

	secured.Get("/stats", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		stats, err := reviews.Stats(reviewerID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})
}
