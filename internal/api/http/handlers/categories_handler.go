package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voc-service/internal/api/dto"
	"github.com/spec-kit/voc-service/internal/domain"
)

// CategoryCatalog lists selectable categories.
type CategoryCatalog interface {
	ListActive(ctx context.Context) ([]domain.Category, error)
}

// CategoriesHandler serves the category list used by the intake form.
type CategoriesHandler struct {
	categories CategoryCatalog
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories CategoryCatalog) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// List handles GET /categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories, err := h.categories.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryResponses(categories)})
}
