// handlers/tile_routes.go
package handlers

import (
	"tile-event-system/middleware"
	"tile-event-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTileRoutes(app *fiber.App, tileService *services.TileService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/events/:id/tiles", func(c *fiber.Ctx) error {
		tiles, err := tileService.ListTiles(c.Params("id"))
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(tiles)
	})

	secured.Post("/events/:id/tiles", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		in := services.TileInput{Position: -1} // default: append
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		tile, err := tileService.CreateTile(c.Params("id"), in)
		if err != nil {
			return svcError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tile)
	})

	secured.Put("/tiles/:id", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var in services.TileInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		tile, err := tileService.UpdateTile(c.Params("id"), in)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(tile)
	})

	secured.Delete("/tiles/:id", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		if err := tileService.DeleteTile(c.Params("id")); err != nil {
			return svcError(c, err)
		}
		return c.JSON(fiber.Map{"message": "tile deleted"})
	})

	// Full ordered replacement. Client-supplied positions are advisory; the
	// server reassigns each tile's position to its array index.
	secured.Put("/events/:id/tiles/bulk", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var inputs []services.TileInput
		if err := c.BodyParser(&inputs); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		tiles, err := tileService.ReplaceAll(c.Params("id"), inputs)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(tiles)
	})
}
