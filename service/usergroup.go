package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ferranti/homeledger/cache"
	"github.com/ferranti/homeledger/model"
	"github.com/ferranti/homeledger/store"
)

const membershipKeyspace = "usergroup"

var (
	famMembershipAll           = cache.FamilyKey{Service: membershipKeyspace, Family: "all"}
	famMembershipByUser        = cache.FamilyKey{Service: membershipKeyspace, Family: "byUser"}
	famMembershipByGroup       = cache.FamilyKey{Service: membershipKeyspace, Family: "byGroup"}
	famMembershipUsersInGroup  = cache.FamilyKey{Service: membershipKeyspace, Family: "usersInGroup"}
	famMembershipGroupsForUser = cache.FamilyKey{Service: membershipKeyspace, Family: "groupsForUser"}

	famMembershipIsMember = cache.FamilyKey{Service: membershipKeyspace, Family: "isMember"}
)

// MembershipService manages the user/group join rows and the cross-entity
// views derived from them (users of a group, groups of a user).
type MembershipService struct {
	store *store.Handle
	cache cache.Service
	log   *slog.Logger
}

func NewMembershipService(h *store.Handle, c cache.Service, logger *slog.Logger) *MembershipService {
	return &MembershipService{store: h, cache: c, log: serviceLogger(logger, "memberships")}
}

// Memberships returns every membership row in join order.
func (s *MembershipService) Memberships(ctx context.Context) ([]*model.UserGroup, error) {
	key := cache.NewKey(membershipKeyspace, "all")
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.UserGroup, error) {
		return store.Fetch[*model.UserGroup](ctx, s.store, "fetch memberships", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("created_at ASC")
		})
	})
}

// MembershipsForUser returns one user's membership rows in join order.
func (s *MembershipService) MembershipsForUser(ctx context.Context, userID uuid.UUID) ([]*model.UserGroup, error) {
	key := cache.NewKey(membershipKeyspace, "byUser", userID)
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.UserGroup, error) {
		return store.Fetch[*model.UserGroup](ctx, s.store, "fetch user memberships", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("user_id = ?", userID).OrderExpr("created_at ASC")
		})
	})
}

// MembershipsForGroup returns one group's membership rows in join order.
func (s *MembershipService) MembershipsForGroup(ctx context.Context, groupID uuid.UUID) ([]*model.UserGroup, error) {
	key := cache.NewKey(membershipKeyspace, "byGroup", groupID)
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.UserGroup, error) {
		return store.Fetch[*model.UserGroup](ctx, s.store, "fetch group memberships", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("group_id = ?", groupID).OrderExpr("created_at ASC")
		})
	})
}

// UsersInGroup returns the users belonging to a group, ordered by name.
func (s *MembershipService) UsersInGroup(ctx context.Context, groupID uuid.UUID) ([]*model.User, error) {
	key := cache.NewKey(membershipKeyspace, "usersInGroup", groupID)
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.User, error) {
		return store.Fetch[*model.User](ctx, s.store, "fetch users in group", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Join("JOIN user_groups AS ug ON ug.user_id = u.id").
				Where("ug.group_id = ?", groupID).
				OrderExpr("lower(u.name) ASC")
		})
	})
}

// GroupsForUser returns the groups a user belongs to, ordered by name.
func (s *MembershipService) GroupsForUser(ctx context.Context, userID uuid.UUID) ([]*model.Group, error) {
	key := cache.NewKey(membershipKeyspace, "groupsForUser", userID)
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.Group, error) {
		return store.Fetch[*model.Group](ctx, s.store, "fetch groups for user", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Join("JOIN user_groups AS ug ON ug.group_id = g.id").
				Where("ug.user_id = ?", userID).
				OrderExpr("lower(g.name) ASC")
		})
	})
}

// IsMember reports whether the user currently belongs to the group. The
// answer is cached in the validation namespace under the pair of ids.
func (s *MembershipService) IsMember(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	key := cache.NewKey(membershipKeyspace, "isMember", userID, groupID)
	return cache.GetOrCheck(ctx, s.cache.Validation(), key, func(ctx context.Context) (bool, error) {
		n, err := store.Count[*model.UserGroup](ctx, s.store, "count membership", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("user_id = ?", userID).Where("group_id = ?", groupID)
		})
		if err != nil {
			return false, err
		}
		return n > 0, nil
	})
}

// MembershipByID looks up one membership row, bypassing the cache.
func (s *MembershipService) MembershipByID(ctx context.Context, id uuid.UUID) (*model.UserGroup, error) {
	membership, found, err := store.FetchOne[*model.UserGroup](ctx, s.store, "fetch membership", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("membership %s: %w", id, ErrNotFound)
	}
	return membership, nil
}

// CreateMembershipParams carries the input for CreateMembership.
type CreateMembershipParams struct {
	UserID  uuid.UUID
	GroupID uuid.UUID
	Role    string
}

// CreateMembership joins a user to a group with the given role. A user
// joins a group at most once; a second join surfaces the store's unique
// constraint.
func (s *MembershipService) CreateMembership(ctx context.Context, p CreateMembershipParams) (*model.UserGroup, error) {
	if err := validateRole(p.Role); err != nil {
		return nil, err
	}

	membership := &model.UserGroup{
		ID:        uuid.New(),
		UserID:    p.UserID,
		GroupID:   p.GroupID,
		Role:      p.Role,
		CreatedAt: now(),
	}

	err := s.store.Write(ctx, "create membership", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(membership).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "membership created",
		"membership_id", membership.ID, "user_id", membership.UserID,
		"group_id", membership.GroupID, "role", membership.Role)
	return membership, nil
}

// UpdateRole changes the role carried by a membership.
func (s *MembershipService) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	if err := validateRole(role); err != nil {
		return err
	}

	membership, err := s.MembershipByID(ctx, id)
	if err != nil {
		return err
	}
	membership.Role = role

	err = s.store.Write(ctx, "update membership", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(membership).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "membership role updated", "membership_id", id, "role", role)
	return nil
}

// DeleteMembership removes a user from a group.
func (s *MembershipService) DeleteMembership(ctx context.Context, id uuid.UUID) error {
	membership, err := s.MembershipByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.store.Write(ctx, "delete membership", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model(membership).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "membership deleted",
		"membership_id", id, "user_id", membership.UserID, "group_id", membership.GroupID)
	return nil
}

func (s *MembershipService) invalidate(ctx context.Context) {
	invalidateFamilies(ctx, s.log, s.cache.Data(),
		famMembershipAll, famMembershipByUser, famMembershipByGroup,
		famMembershipUsersInGroup, famMembershipGroupsForUser)
	invalidateFamilies(ctx, s.log, s.cache.Validation(), famMembershipIsMember)
}
