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

const groupKeyspace = "group"

var (
	famGroupAll    = cache.FamilyKey{Service: groupKeyspace, Family: "all"}
	famGroupExists = cache.FamilyKey{Service: groupKeyspace, Family: "exists"}
)

// GroupService provides cached CRUD over expense groups.
type GroupService struct {
	store *store.Handle
	cache cache.Service
	log   *slog.Logger
}

func NewGroupService(h *store.Handle, c cache.Service, logger *slog.Logger) *GroupService {
	return &GroupService{store: h, cache: c, log: serviceLogger(logger, "groups")}
}

// Groups returns all groups ordered by name, reading through the data
// cache.
func (s *GroupService) Groups(ctx context.Context) ([]*model.Group, error) {
	key := cache.NewKey(groupKeyspace, "all")
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.Group, error) {
		return store.Fetch[*model.Group](ctx, s.store, "fetch groups", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("lower(name) ASC")
		})
	})
}

// GroupByID looks up one group, bypassing the cache.
func (s *GroupService) GroupByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	group, found, err := store.FetchOne[*model.Group](ctx, s.store, "fetch group", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return group, nil
}

// CreateGroupParams carries the input for CreateGroup.
type CreateGroupParams struct {
	Name     string
	Currency string
}

// CreateGroup persists a new group and invalidates group caches. Name
// uniqueness is caller policy via NameExists.
func (s *GroupService) CreateGroup(ctx context.Context, p CreateGroupParams) (*model.Group, error) {
	if err := validateRequired("name", p.Name); err != nil {
		return nil, err
	}
	if err := validateCurrency(p.Currency); err != nil {
		return nil, err
	}

	ts := now()
	group := &model.Group{
		ID:        uuid.New(),
		Name:      p.Name,
		Currency:  p.Currency,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	err := s.store.Write(ctx, "create group", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(group).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "group created", "group_id", group.ID, "name", group.Name)
	return group, nil
}

// UpdateGroup applies the set fields of the patch and invalidates group
// caches. A rename can change both sort order and uniqueness answers, so
// the same families clear as on create.
func (s *GroupService) UpdateGroup(ctx context.Context, id uuid.UUID, patch model.GroupPatch) error {
	group, err := s.GroupByID(ctx, id)
	if err != nil {
		return err
	}

	if v, ok := patch.Name.Get(); ok {
		if err := validateRequired("name", v); err != nil {
			return err
		}
		group.Name = v
	}
	if v, ok := patch.Currency.Get(); ok {
		if err := validateCurrency(v); err != nil {
			return err
		}
		group.Currency = v
	}
	group.UpdatedAt = now()

	err = s.store.Write(ctx, "update group", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(group).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "group updated", "group_id", id)
	return nil
}

// DeleteGroup removes a group. A group that still owns entries or
// categories cannot be deleted; it must be emptied first. Memberships
// cascade at the store level, so membership caches clear too.
func (s *GroupService) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	group, err := s.GroupByID(ctx, id)
	if err != nil {
		return err
	}

	entries, err := store.Count[*model.Entry](ctx, s.store, "count group entries", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", id)
	})
	if err != nil {
		return err
	}
	if entries > 0 {
		return &GuardViolation{Entity: "group", Reason: "group still has entries"}
	}

	categories, err := store.Count[*model.Category](ctx, s.store, "count group categories", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", id)
	})
	if err != nil {
		return err
	}
	if categories > 0 {
		return &GuardViolation{Entity: "group", Reason: "group still has categories"}
	}

	err = s.store.Write(ctx, "delete group", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model(group).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	// Memberships cascade with the group.
	invalidateFamilies(ctx, s.log, s.cache.Data(),
		famMembershipAll, famMembershipByUser, famMembershipByGroup,
		famMembershipUsersInGroup, famMembershipGroupsForUser)
	invalidateFamilies(ctx, s.log, s.cache.Validation(), famMembershipIsMember)

	s.log.InfoContext(ctx, "group deleted", "group_id", id)
	return nil
}

// NameExists reports whether a group with the given name exists,
// case-insensitively, optionally excluding one group id.
func (s *GroupService) NameExists(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	normalized := strings.ToLower(name)
	key := cache.NewKey(groupKeyspace, "exists", normalized, excludeID)
	return cache.GetOrCheck(ctx, s.cache.Validation(), key, func(ctx context.Context) (bool, error) {
		n, err := store.Count[*model.Group](ctx, s.store, "count groups by name", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("lower(name) = ?", normalized)
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

func (s *GroupService) invalidate(ctx context.Context) {
	invalidateFamilies(ctx, s.log, s.cache.Data(), famGroupAll)
	invalidateFamilies(ctx, s.log, s.cache.Validation(), famGroupExists)
}
