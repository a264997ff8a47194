// handlers/submission_routes.go
package handlers

import (
	"tile-event-system/middleware"
	"tile-event-system/models"
	"tile-event-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(app *fiber.App, submissionService *services.SubmissionService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Proof submission, normally forwarded by the Discord bot with the
	// vision pipeline's OCR output attached.
	secured.Post("/events/:id/submissions", func(c *fiber.Ctx) error {
		var in services.SubmitInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if in.DiscordID == "" {
			in.DiscordID, _ = c.Locals("user_id").(string)
		}
		sub, err := submissionService.Submit(c.Params("id"), in)
		if err != nil {
			return svcError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	secured.Get("/events/:id/submissions", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		status := models.SubmissionStatus(c.Query("status"))
		subs, err := submissionService.ListSubmissions(c.Params("id"), status)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(subs)
	})

	secured.Post("/submissions/:id/review", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var req struct {
			Status models.SubmissionStatus `json:"status"`
			Notes  string                  `json:"notes"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		reviewer, _ := c.Locals("user_id").(string)
		sub, err := submissionService.Review(c.Params("id"), req.Status, req.Notes, reviewer)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(sub)
	})

	secured.Delete("/submissions/:id", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		if err := submissionService.DeleteSubmission(c.Params("id")); err != nil {
			return svcError(c, err)
		}
		return c.JSON(fiber.Map{"message": "submission deleted"})
	})
}
