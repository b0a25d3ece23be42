package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/repository"
	"github.com/spec-kit/voc-service/pkg/util"
)

type categoryLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
}

// CategoryService lists and provisions ticket categories.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CreateCategoryCommand describes a new category.
type CreateCategoryCommand struct {
	Name        string
	ParentID    *int64
	Description string
	SortOrder   int
}

// ListActive returns active categories, parents before their children.
func (s *CategoryService) ListActive(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListActive(ctx)
}

// Create stores a category. A parent makes it a SUB category of an existing MAIN one.
func (s *CategoryService) Create(ctx context.Context, cmd CreateCategoryCommand) (*domain.Category, error) {
	category := &domain.Category{
		Name:        util.SanitizeText(cmd.Name),
		Type:        domain.CategoryTypeMain,
		ParentID:    cmd.ParentID,
		Description: util.SanitizeText(cmd.Description),
		Active:      true,
		SortOrder:   cmd.SortOrder,
	}
	if cmd.ParentID != nil {
		category.Type = domain.CategoryTypeSub
		parent, err := s.categories.GetByID(ctx, *cmd.ParentID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("category", *cmd.ParentID)
		}
		if err != nil {
			return nil, fmt.Errorf("load parent category: %w", err)
		}
		if parent.Type != domain.CategoryTypeMain {
			return nil, domain.NewValidationError("parentId", "parent must be a MAIN category")
		}
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}
