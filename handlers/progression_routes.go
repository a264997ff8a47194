// handlers/progression_routes.go
package handlers

import (
	"tile-event-system/middleware"
	"tile-event-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/events/:id/participants", func(c *fiber.Ctx) error {
		parts, err := progressionService.ListParticipants(c.Params("id"))
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(parts)
	})

	secured.Get("/events/:id/participants/:pid", func(c *fiber.Ctx) error {
		p, err := progressionService.GetParticipant(c.Params("id"), c.Params("pid"))
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(p)
	})

	secured.Put("/events/:id/participants/:pid/rsn", func(c *fiber.Ctx) error {
		var req struct {
			RSN string `json:"rsn"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		p, err := progressionService.SetRSN(c.Params("id"), c.Params("pid"), req.RSN)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(p)
	})

	// Admin overrides bypass verification entirely.
	secured.Post("/events/:id/participants/:pid/unlock", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var req struct {
			Position int `json:"position"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		p, err := progressionService.Unlock(c.Params("id"), c.Params("pid"), req.Position)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(p)
	})

	secured.Post("/events/:id/participants/:pid/lock", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var req struct {
			Position int `json:"position"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		p, err := progressionService.Lock(c.Params("id"), c.Params("pid"), req.Position)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(p)
	})

	secured.Post("/events/:id/participants/:pid/reset", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		p, err := progressionService.ResetParticipant(c.Params("id"), c.Params("pid"))
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(p)
	})

	secured.Delete("/events/:id/participants/:pid", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		if err := progressionService.RemoveParticipant(c.Params("id"), c.Params("pid")); err != nil {
			return svcError(c, err)
		}
		return c.JSON(fiber.Map{"message": "participant removed"})
	})

	secured.Patch("/events/:id/participants/:pid/skips", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var req struct {
			Delta int `json:"delta"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		p, err := progressionService.AdjustSkips(c.Params("id"), c.Params("pid"), req.Delta)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(p)
	})
}
