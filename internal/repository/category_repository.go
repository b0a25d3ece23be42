package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/voc-service/internal/domain"
)

// CategoryRepository manages ticket categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	pool DB
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool DB) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `id, name, type, parent_id, description, active, sort_order, created_at, updated_at`

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, type, parent_id, description, active, sort_order)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		category.Name,
		category.Type,
		category.ParentID,
		category.Description,
		category.Active,
		category.SortOrder,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("name", "already exists under this parent")
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id=$1`
	var category domain.Category
	if err := scanCategory(conn(ctx, r.pool).QueryRow(ctx, query, id), &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE active = TRUE
        ORDER BY COALESCE(parent_id, id), parent_id NULLS FIRST, sort_order, id`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := scanCategory(rows, &category); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner, category *domain.Category) error {
	return row.Scan(
		&category.ID,
		&category.Name,
		&category.Type,
		&category.ParentID,
		&category.Description,
		&category.Active,
		&category.SortOrder,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
}
