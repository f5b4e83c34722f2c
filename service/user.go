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

const userKeyspace = "user"

var (
	famUserAll    = cache.FamilyKey{Service: userKeyspace, Family: "all"}
	famUserExists = cache.FamilyKey{Service: userKeyspace, Family: "exists"}
)

// UserService provides cached CRUD over users.
type UserService struct {
	store *store.Handle
	cache cache.Service
	log   *slog.Logger
}

// NewUserService builds a UserService over the shared store handle and
// cache service.
func NewUserService(h *store.Handle, c cache.Service, logger *slog.Logger) *UserService {
	return &UserService{store: h, cache: c, log: serviceLogger(logger, "users")}
}

// Users returns all users ordered by display name, reading through the
// data cache.
func (s *UserService) Users(ctx context.Context) ([]*model.User, error) {
	key := cache.NewKey(userKeyspace, "all")
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.User, error) {
		return store.Fetch[*model.User](ctx, s.store, "fetch users", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("lower(name) ASC").OrderExpr("lower(email) ASC")
		})
	})
}

// UserByID looks up one user. Lookups by id go straight to the store;
// only list and aggregate queries are cached.
func (s *UserService) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, found, err := store.FetchOne[*model.User](ctx, s.store, "fetch user", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

// CreateUserParams carries the input for CreateUser.
type CreateUserParams struct {
	Name  string
	Email string
}

// CreateUser persists a new user and invalidates user caches. Email
// uniqueness is the caller's policy via EmailExists; the store's unique
// index is the backstop against racing writers.
func (s *UserService) CreateUser(ctx context.Context, p CreateUserParams) (*model.User, error) {
	if err := validateEmail(p.Email); err != nil {
		return nil, err
	}

	ts := now()
	user := &model.User{
		ID:        uuid.New(),
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	err := s.store.Write(ctx, "create user", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(user).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// UpdateUser applies the set fields of the patch, touches the modified
// timestamp, and invalidates user caches.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, patch model.UserPatch) error {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return err
	}

	if v, ok := patch.Name.Get(); ok {
		user.Name = v
	}
	if v, ok := patch.Email.Get(); ok {
		if err := validateEmail(v); err != nil {
			return err
		}
		user.Email = v
	}
	user.UpdatedAt = now()

	err = s.store.Write(ctx, "update user", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(user).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "user updated", "user_id", id)
	return nil
}

// DeleteUser removes a user. A user with any group membership cannot be
// deleted; the guard runs before the store is touched.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return err
	}

	memberships, err := store.Count[*model.UserGroup](ctx, s.store, "count user memberships", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", id)
	})
	if err != nil {
		return err
	}
	if memberships > 0 {
		return &GuardViolation{Entity: "user", Reason: "user still belongs to groups"}
	}

	err = s.store.Write(ctx, "delete user", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model(user).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

// EmailExists reports whether a user with the given email exists,
// case-insensitively, optionally excluding one user id (the record being
// edited). Every parameter is part of the cache key.
func (s *UserService) EmailExists(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	normalized := strings.ToLower(email)
	key := cache.NewKey(userKeyspace, "exists", normalized, excludeID)
	return cache.GetOrCheck(ctx, s.cache.Validation(), key, func(ctx context.Context) (bool, error) {
		n, err := store.Count[*model.User](ctx, s.store, "count users by email", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("lower(email) = ?", normalized)
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

func (s *UserService) invalidate(ctx context.Context) {
	invalidateFamilies(ctx, s.log, s.cache.Data(), famUserAll)
	invalidateFamilies(ctx, s.log, s.cache.Validation(), famUserExists)
}
