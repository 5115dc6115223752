package repository

import (
	"context"

	"github.com/spec-kit/request-desk/internal/domain"
)

// CategoryRepository reads request categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
}

type categoryRepository struct {
	db DB
}

// NewCategoryRepository builds repository.
func NewCategoryRepository(db DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, name, area, requires_extra_description, variable_cost, cost, active
        FROM categories WHERE id=$1`
	var c domain.Category
	if err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Area,
		&c.RequiresExtraDescription,
		&c.VariableCost,
		&c.Cost,
		&c.Active,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
