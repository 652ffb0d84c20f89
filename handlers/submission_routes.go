// task-verify-system/handlers/submission_routes.go
package handlers

import (
	"fmt"
	"log"
	"path/filepath"

	"task-verify-system/middleware"
	"task-verify-system/services"
	"task-verify-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// collectAttachments stores multipart evidence files to R2 and returns their
// public URLs. The pipeline only ever sees URL strings.
func collectAttachments(c *fiber.Ctx) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil // no multipart body, JSON attachments may still be set
	}

	var urls []string
	for _, fh := range form.File["attachments"] {
		key := fmt.Sprintf("evidence/%s%s", uuid.NewString(), filepath.Ext(fh.Filename))
		url, err := utils.UploadAttachment(fh, key)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func SetupSubmissionRoutes(app *fiber.App, submissions *services.SubmissionService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/tasks/:taskId/submissions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		taskID := c.Params("taskId")
		if _, err := uuid.Parse(taskID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
		}

		attachments, err := collectAttachments(c)
		if err != nil {
			log.Printf("❌ attachment upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store attachments"})
		}

		text := c.FormValue("submission_text")
		if text == "" {
			var body struct {
				SubmissionText string   `json:"submission_text"`
				Attachments    []string `json:"attachments"`
			}
			if err := c.BodyParser(&body); err == nil {
				text = body.SubmissionText
				if attachments == nil {
					attachments = body.Attachments
				}
			}
		}
		if text == "" && len(attachments) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Submission requires text or attachments"})
		}

		sub, err := submissions.Submit(c.Context(), taskID, userID, text, attachments)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	secured.Post("/submissions/:id/resubmit", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid submission ID"})
		}

		attachments, err := collectAttachments(c)
		if err != nil {
			log.Printf("❌ attachment upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store attachments"})
		}

		text := c.FormValue("submission_text")
		if text == "" {
			var body struct {
				SubmissionText string   `json:"submission_text"`
				Attachments    []string `json:"attachments"`
			}
			if err := c.BodyParser(&body); err == nil {
				text = body.SubmissionText
				if attachments == nil {
					attachments = body.Attachments
				}
			}
		}

		sub, err := submissions.Resubmit(c.Context(), id, userID, text, attachments)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(sub)
	})

	secured.Get("/submissions/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		id := c.Params("id")

		sub, err := submissions.GetSubmission(id)
		if err != nil {
			return respondError(c, err)
		}
		if sub.UserID != userID && (sub.ReviewerID == nil || *sub.ReviewerID != userID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your submission"})
		}
		return c.JSON(sub)
	})
}
