// handlers/event_routes.go
package handlers

import (
	"tile-event-system/middleware"
	"tile-event-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, eventService *services.EventService, sheetService *services.SheetService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/events", func(c *fiber.Ctx) error {
		activeOnly := c.QueryBool("active", false)
		events, err := eventService.ListEvents(activeOnly)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(events)
	})

	secured.Get("/events/:id", func(c *fiber.Ctx) error {
		event, err := eventService.GetEvent(c.Params("id"))
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(event)
	})

	secured.Post("/events", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var in services.EventInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		event, err := eventService.CreateEvent(in)
		if err != nil {
			return svcError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(event)
	})

	secured.Put("/events/:id", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var in services.EventInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		event, err := eventService.UpdateEvent(c.Params("id"), in)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(event)
	})

	secured.Delete("/events/:id", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		if err := eventService.DeleteEvent(c.Params("id")); err != nil {
			return svcError(c, err)
		}
		return c.JSON(fiber.Map{"message": "event deleted"})
	})

	// Manual sheet import trigger; the gocron job covers auto-sync events.
	secured.Post("/events/:id/sheet/sync", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		tiles, err := sheetService.SyncEvent(c.Params("id"))
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "sheet imported",
			"tiles":   tiles,
		})
	})
}
