package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"finances/internal/cache"
	"finances/internal/core"
)

// CategoryResolver returns the category with a given title, creating it on first use.
//
// Titles are unique in the store, so a concurrent creator losing the insert
// gets core.ErrCategoryExists and re-reads the winner's row. Within one
// process, concurrent resolutions of the same title share a single store
// round-trip through singleflight.
type CategoryResolver struct {
	store CategoryStore
	cache cache.Cache[core.Category]
	group singleflight.Group
	now   clockFunc
	newID idFunc
}

// NewCategoryResolver accepts a nil cache.
func NewCategoryResolver(store CategoryStore, c cache.Cache[core.Category]) *CategoryResolver {
	return &CategoryResolver{
		store: store,
		cache: c,
		now:   defaultClock,
		newID: defaultID,
	}
}

// Resolve looks up title exactly (after trimming) and creates the category if absent.
func (r *CategoryResolver) Resolve(ctx context.Context, title string) (core.Category, error) {
	title = strings.TrimSpace(title)
	if err := (core.Category{Title: title}).Validate(); err != nil {
		return core.Category{}, categoryValidationError(err)
	}

	if c, ok := r.cached(title); ok {
		return c, nil
	}

	v, err, _ := r.group.Do(title, func() (interface{}, error) {
		return r.getOrCreate(ctx, title)
	})
	if err != nil {
		return core.Category{}, err
	}
	c := v.(core.Category)
	r.remember(c)
	return c, nil
}

func (r *CategoryResolver) getOrCreate(ctx context.Context, title string) (core.Category, error) {
	existing, err := r.store.GetCategoryByTitle(ctx, title)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}

	now := r.now()
	c := core.Category{ID: r.newID(), Title: title, CreatedAt: now, UpdatedAt: now}
	err = r.store.CreateCategory(ctx, c)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Category created", "id", c.ID, "title", c.Title)
		return c, nil
	case errors.Is(err, core.ErrCategoryExists):
		existing, err := r.store.GetCategoryByTitle(ctx, title)
		if err != nil {
			return core.Category{}, fmt.Errorf("refetch category after conflict: %w", err)
		}
		return existing, nil
	default:
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
}

// ResolveAll resolves every title with one batch lookup and at most one batch insert.
// Titles are deduplicated first, so a title repeated in the input is created once.
// Empty titles are rejected.
func (r *CategoryResolver) ResolveAll(ctx context.Context, titles []string) (map[string]core.Category, error) {
	resolved := make(map[string]core.Category, len(titles))
	var lookup []string
	seen := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if err := (core.Category{Title: t}).Validate(); err != nil {
			return nil, categoryValidationError(err)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if c, ok := r.cached(t); ok {
			resolved[t] = c
			continue
		}
		lookup = append(lookup, t)
	}
	if len(lookup) == 0 {
		return resolved, nil
	}

	existing, err := r.store.GetCategoriesByTitles(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("get categories by titles: %w", err)
	}
	for _, c := range existing {
		resolved[c.Title] = c
		r.remember(c)
	}

	now := r.now()
	var missing []core.Category
	for _, t := range lookup {
		if _, ok := resolved[t]; !ok {
			missing = append(missing, core.Category{ID: r.newID(), Title: t, CreatedAt: now, UpdatedAt: now})
		}
	}
	if len(missing) == 0 {
		return resolved, nil
	}

	created, err := r.store.CreateCategories(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("create categories: %w", err)
	}
	for _, c := range created {
		resolved[c.Title] = c
		r.remember(c)
	}
	slog.InfoContext(ctx, "Categories created", "count", len(created))

	// Titles inserted concurrently by someone else since the lookup.
	var raced []string
	for _, c := range missing {
		if _, ok := resolved[c.Title]; !ok {
			raced = append(raced, c.Title)
		}
	}
	if len(raced) == 0 {
		return resolved, nil
	}
	again, err := r.store.GetCategoriesByTitles(ctx, raced)
	if err != nil {
		return nil, fmt.Errorf("refetch categories after conflict: %w", err)
	}
	for _, c := range again {
		resolved[c.Title] = c
		r.remember(c)
	}
	for _, t := range raced {
		if _, ok := resolved[t]; !ok {
			return nil, fmt.Errorf("resolve category %q: %w", t, core.ErrNotFound)
		}
	}
	return resolved, nil
}

// List returns every stored category.
func (r *CategoryResolver) List(ctx context.Context) ([]core.Category, error) {
	cats, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *CategoryResolver) cached(title string) (core.Category, bool) {
	if r.cache == nil {
		return core.Category{}, false
	}
	return r.cache.Get(title)
}

func (r *CategoryResolver) remember(c core.Category) {
	if r.cache != nil {
		r.cache.Set(c.Title, c)
	}
}

func categoryValidationError(err error) *core.AppError {
	msg := "Category is required"
	if errors.Is(err, core.ErrTitleTooLong) {
		msg = "Category title is too long"
	}
	return core.NewValidationError(msg).WithCause(err)
}
