package service

import (
	"context"
	"sort"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/voc-service/internal/domain"
)

type memoryCategories struct {
	items  map[int64]domain.Category
	nextID int64
}

func newMemoryCategories(seed ...domain.Category) *memoryCategories {
	m := &memoryCategories{items: map[int64]domain.Category{}}
	for _, c := range seed {
		m.items[c.ID] = c
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
	}
	return m
}

func (m *memoryCategories) Create(_ context.Context, category *domain.Category) error {
	m.nextID++
	category.ID = m.nextID
	category.CreatedAt = testNow
	category.UpdatedAt = testNow
	m.items[category.ID] = *category
	return nil
}

func (m *memoryCategories) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (m *memoryCategories) ListActive(_ context.Context) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(m.items))
	for _, c := range m.items {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func seededCategories() *memoryCategories {
	return newMemoryCategories(
		domain.Category{ID: 1, Name: "Orders", Type: domain.CategoryTypeMain, Active: true},
		domain.Category{ID: 2, Name: "Legacy", Type: domain.CategoryTypeMain, Active: false},
		domain.Category{ID: 3, Name: "Other", Type: domain.CategoryTypeMain, Active: true},
	)
}

func TestCreateTicket_ChecksCategory(t *testing.T) {
	h := newHarness()
	h.service.categories = seededCategories()

	_, err := h.service.CreateTicket(context.Background(), validCreateCommand())
	require.NoError(t, err)

	for name, id := range map[string]int64{"unknown": 42, "inactive": 2} {
		t.Run(name, func(t *testing.T) {
			cmd := validCreateCommand()
			cmd.CategoryID = id
			_, err := h.service.CreateTicket(context.Background(), cmd)
			var validation *domain.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, "categoryId", validation.Field)
		})
	}
	assert.Equal(t, []string{"created"}, h.notifier.kinds())
}

func TestCategoryService_Create(t *testing.T) {
	categories := seededCategories()
	svc := NewCategoryService(categories)
	ctx := context.Background()

	parent, err := svc.Create(ctx, CreateCategoryCommand{Name: " Shipping "})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryTypeMain, parent.Type)
	assert.Equal(t, "Shipping", parent.Name)

	sub, err := svc.Create(ctx, CreateCategoryCommand{Name: "Late delivery", ParentID: &parent.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryTypeSub, sub.Type)

	_, err = svc.Create(ctx, CreateCategoryCommand{Name: "Nested", ParentID: &sub.ID})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "parentId", validation.Field)

	missing := int64(999)
	_, err = svc.Create(ctx, CreateCategoryCommand{Name: "Orphan", ParentID: &missing})
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = svc.Create(ctx, CreateCategoryCommand{Name: "   "})
	require.ErrorAs(t, err, &validation)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 4)
}
