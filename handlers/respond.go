package handlers

import (
	"errors"

	"tile-event-system/services"

	"github.com/gofiber/fiber/v2"
)

// svcError maps service error kinds onto HTTP statuses: validation → 400,
// not found → 404, conflict → 409, anything else → 500.
func svcError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
