package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxsynq/realtime/internal/apperr"
)

// fail maps a service error onto the HTTP surface via its taxonomy code.
func fail(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	return c.Status(apperr.HTTPStatus(code)).JSON(fiber.Map{
		"code":  code,
		"error": err.Error(),
	})
}
