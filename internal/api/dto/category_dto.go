package dto

import "github.com/spec-kit/voc-service/internal/domain"

// CategoryResponse is the public view of a category.
type CategoryResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Type        domain.CategoryType `json:"type"`
	ParentID    *int64              `json:"parentId,omitempty"`
	Description string              `json:"description,omitempty"`
	SortOrder   int                 `json:"sortOrder"`
}

// NewCategoryResponses maps categories.
func NewCategoryResponses(categories []domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryResponse{
			ID:          c.ID,
			Name:        c.Name,
			Type:        c.Type,
			ParentID:    c.ParentID,
			Description: c.Description,
			SortOrder:   c.SortOrder,
		})
	}
	return out
}
