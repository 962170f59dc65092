// Package handlers implements the console's HTTP endpoints.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kubetide/console/pkg/store"
)

// respondError maps store errors onto structured failure results. Unknown
// errors are upstream failures (cluster API, I/O) and surface as 500 with
// the identifying message; the caller decides user messaging.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}
