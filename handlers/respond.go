// task-verify-system/handlers/respond.go
package handlers

import (
	"errors"

	"task-verify-system/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps pipeline sentinel errors onto HTTP statuses. Anything
// unmapped is a storage-layer abort and surfaces as a generic failure.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTaskUnavailable):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateSubmission), errors.Is(err, services.ErrAlreadyAssigned):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotEligible), errors.Is(err, services.ErrNotAssignedToReviewer):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "operation failed"})
	}
}
