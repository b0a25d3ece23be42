package domain

import "time"

// CategoryType distinguishes top level categories from their children.
type CategoryType string

const (
	CategoryTypeMain CategoryType = "MAIN"
	CategoryTypeSub  CategoryType = "SUB"
)

// CategoryNameMaxLength bounds category names.
const CategoryNameMaxLength = 100

// Category classifies tickets in a two level tree.
type Category struct {
	ID          int64
	Name        string
	Type        CategoryType
	ParentID    *int64
	Description string
	Active      bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the name and that only SUB categories have a parent.
func (c *Category) Validate() error {
	if c.Name == "" || len([]rune(c.Name)) > CategoryNameMaxLength {
		return NewValidationError("name", "must be between 1 and 100 characters")
	}
	switch c.Type {
	case CategoryTypeMain:
		if c.ParentID != nil {
			return NewValidationError("parentId", "a MAIN category cannot have a parent")
		}
	case CategoryTypeSub:
		if c.ParentID == nil {
			return NewValidationError("parentId", "a SUB category requires a parent")
		}
	default:
		return NewValidationError("type", "must be MAIN or SUB")
	}
	if c.SortOrder < 0 {
		return NewValidationError("sortOrder", "must not be negative")
	}
	return nil
}
