package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ferranti/homeledger/cache"
	"github.com/ferranti/homeledger/model"
	"github.com/ferranti/homeledger/store"
)

const categoryKeyspace = "category"

var (
	famCategoryAll     = cache.FamilyKey{Service: categoryKeyspace, Family: "all"}
	famCategoryByGroup = cache.FamilyKey{Service: categoryKeyspace, Family: "byGroup"}
	famCategoryExists  = cache.FamilyKey{Service: categoryKeyspace, Family: "exists"}
)

// CategoryService provides cached CRUD over per-group categories.
type CategoryService struct {
	store *store.Handle
	cache cache.Service
	log   *slog.Logger
}

func NewCategoryService(h *store.Handle, c cache.Service, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: h, cache: c, log: serviceLogger(logger, "categories")}
}

// Categories returns all categories across groups, ordered by name.
func (s *CategoryService) Categories(ctx context.Context) ([]*model.Category, error) {
	key := cache.NewKey(categoryKeyspace, "all")
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.Category, error) {
		return store.Fetch[*model.Category](ctx, s.store, "fetch categories", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("lower(name) ASC")
		})
	})
}

// GroupCategories returns the categories of one group, ordered by name.
// The group id is part of the cache key, so each group's list caches
// independently.
func (s *CategoryService) GroupCategories(ctx context.Context, groupID uuid.UUID) ([]*model.Category, error) {
	key := cache.NewKey(categoryKeyspace, "byGroup", groupID)
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.Category, error) {
		return store.Fetch[*model.Category](ctx, s.store, "fetch group categories", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("group_id = ?", groupID).OrderExpr("lower(name) ASC")
		})
	})
}

// CategoryByID looks up one category, bypassing the cache.
func (s *CategoryService) CategoryByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, found, err := store.FetchOne[*model.Category](ctx, s.store, "fetch category", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return category, nil
}

// CreateCategoryParams carries the input for CreateCategory.
type CreateCategoryParams struct {
	Name    string
	Color   string
	GroupID uuid.UUID
}

// CreateCategory persists a new category in its group and invalidates
// category caches. Per-group name uniqueness is caller policy via
// NameExistsInGroup.
func (s *CategoryService) CreateCategory(ctx context.Context, p CreateCategoryParams) (*model.Category, error) {
	if err := validateRequired("name", p.Name); err != nil {
		return nil, err
	}
	if err := validateColor(p.Color); err != nil {
		return nil, err
	}

	ts := now()
	category := &model.Category{
		ID:        uuid.New(),
		Name:      p.Name,
		Color:     p.Color,
		GroupID:   p.GroupID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	err := s.store.Write(ctx, "create category", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(category).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "category created",
		"category_id", category.ID, "group_id", category.GroupID, "name", category.Name)
	return category, nil
}

// UpdateCategory applies the set fields of the patch and invalidates
// category caches.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, patch model.CategoryPatch) error {
	category, err := s.CategoryByID(ctx, id)
	if err != nil {
		return err
	}

	if v, ok := patch.Name.Get(); ok {
		if err := validateRequired("name", v); err != nil {
			return err
		}
		category.Name = v
	}
	if v, ok := patch.Color.Get(); ok {
		if err := validateColor(v); err != nil {
			return err
		}
		category.Color = v
	}
	category.UpdatedAt = now()

	err = s.store.Write(ctx, "update category", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(category).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "category updated", "category_id", id)
	return nil
}

// DeleteCategory removes a category. Entries referencing it keep
// existing with the reference nulled by the store, so only category
// caches need clearing.
func (s *CategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	category, err := s.CategoryByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.store.Write(ctx, "delete category", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model(category).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "category deleted", "category_id", id)
	return nil
}

// NameExistsInGroup reports whether a category with the given name
// exists inside the group, case-insensitively, optionally excluding one
// category id. Name, group, and exclusion are all part of the cache key:
// "Food" in group A and "Food" in group B are different questions.
func (s *CategoryService) NameExistsInGroup(ctx context.Context, name string, groupID uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	normalized := strings.ToLower(name)
	key := cache.NewKey(categoryKeyspace, "exists", normalized, groupID, excludeID)
	return cache.GetOrCheck(ctx, s.cache.Validation(), key, func(ctx context.Context) (bool, error) {
		n, err := store.Count[*model.Category](ctx, s.store, "count categories by name", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("lower(name) = ?", normalized).Where("group_id = ?", groupID)
			if excludeID != nil {
				q = q.Where("id <> ?", *excludeID)
			}
			return q
		})
		if err != nil {
			return false, err
		}
		return n > 0, nil
	})
}

func (s *CategoryService) invalidate(ctx context.Context) {
	invalidateFamilies(ctx, s.log, s.cache.Data(), famCategoryAll, famCategoryByGroup)
	invalidateFamilies(ctx, s.log, s.cache.Validation(), famCategoryExists)
}
