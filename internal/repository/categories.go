package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/sboapp/admin/internal/entities"
)

// Categories is the SBOAPP/categories collection, keyed by catId.
type Categories struct {
	c collection[entities.Category]
}

func (c *Categories) List(ctx context.Context) ([]entities.Category, error) {
	return c.c.list(ctx)
}

func (c *Categories) Get(ctx context.Context, id int) (*entities.Category, error) {
	return c.c.get(ctx, strconv.Itoa(id))
}

// Create adds a category with the next free numeric id. An existing category
// with the same name (case-insensitive) is returned unchanged.
func (c *Categories) Create(ctx context.Context, name string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		var errs entities.ValidationErrors
		errs.Add("catName", "is required")
		return nil, errs
	}
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	maxID := 0
	for _, cat := range all {
		if strings.EqualFold(cat.CatName, name) {
			existing := cat
			return &existing, nil
		}
		if cat.CatID > maxID {
			maxID = cat.CatID
		}
	}
	cat := entities.Category{CatID: maxID + 1, CatName: name, IsActive: true}
	if err := c.Put(ctx, cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Categories) Put(ctx context.Context, cat entities.Category) error {
	return c.c.put(ctx, strconv.Itoa(cat.CatID), cat)
}

// Resolve maps a category label to its catId, falling back to
// entities.DefaultCategoryID for unknown or empty labels.
func (c *Categories) Resolve(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.DefaultCategoryID, nil
	}
	all, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, cat := range all {
		if strings.EqualFold(cat.CatName, name) {
			return cat.CatID, nil
		}
	}
	return entities.DefaultCategoryID, nil
}

func (c *Categories) Subscribe(ctx context.Context, fn func([]entities.Category)) (func(), error) {
	return c.c.subscribe(ctx, fn)
}
