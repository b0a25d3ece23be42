package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voc-service/pkg/util"
)

// parseBody decodes the JSON body into req and runs its validation tags.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	return util.ValidateStruct(req)
}
