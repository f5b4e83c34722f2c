package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ferranti/homeledger/cache"
	"github.com/ferranti/homeledger/model"
	"github.com/ferranti/homeledger/pkg/testsupport"
	"github.com/ferranti/homeledger/store"
)

// env bundles one store, one cache service, and every entity service,
// mirroring how the container wires them in production.
type env struct {
	store       *store.Handle
	cache       cache.Service
	users       *UserService
	groups      *GroupService
	categories  *CategoryService
	entries     *EntryService
	items       *ItemService
	memberships *MembershipService
}

func newEnv(t *testing.T, ctx context.Context) *env {
	t.Helper()

	h := testsupport.OpenStore(t, ctx)
	c := testsupport.NewCache(t)
	return &env{
		store:       h,
		cache:       c,
		users:       NewUserService(h, c, nil),
		groups:      NewGroupService(h, c, nil),
		categories:  NewCategoryService(h, c, nil),
		entries:     NewEntryService(h, c, nil),
		items:       NewItemService(h, c, nil),
		memberships: NewMembershipService(h, c, nil),
	}
}

func (e *env) mustUser(t *testing.T, ctx context.Context, name, email string) *model.User {
	t.Helper()
	u, err := e.users.CreateUser(ctx, CreateUserParams{Name: name, Email: email})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", email, err)
	}
	return u
}

func (e *env) mustGroup(t *testing.T, ctx context.Context, name, currency string) *model.Group {
	t.Helper()
	g, err := e.groups.CreateGroup(ctx, CreateGroupParams{Name: name, Currency: currency})
	if err != nil {
		t.Fatalf("CreateGroup(%q): %v", name, err)
	}
	return g
}

func (e *env) mustCategory(t *testing.T, ctx context.Context, name string, groupID uuid.UUID) *model.Category {
	t.Helper()
	c, err := e.categories.CreateCategory(ctx, CreateCategoryParams{Name: name, Color: "#336699", GroupID: groupID})
	if err != nil {
		t.Fatalf("CreateCategory(%q): %v", name, err)
	}
	return c
}

func (e *env) mustEntry(t *testing.T, ctx context.Context, groupID uuid.UUID) *model.Entry {
	t.Helper()
	entry, err := e.entries.CreateEntry(ctx, CreateEntryParams{
		Description: "entry",
		Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		GroupID:     groupID,
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	return entry
}

func (e *env) mustItem(t *testing.T, ctx context.Context, entryID uuid.UUID, amount string, qty int64) *model.Item {
	t.Helper()
	item, err := e.items.CreateItem(ctx, CreateItemParams{
		Description: "item",
		Amount:      decimal.RequireFromString(amount),
		Quantity:    qty,
		EntryID:     entryID,
	})
	if err != nil {
		t.Fatalf("CreateItem(%s x%d): %v", amount, qty, err)
	}
	return item
}

func (e *env) mustMembership(t *testing.T, ctx context.Context, userID, groupID uuid.UUID, role string) *model.UserGroup {
	t.Helper()
	m, err := e.memberships.CreateMembership(ctx, CreateMembershipParams{UserID: userID, GroupID: groupID, Role: role})
	if err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
	return m
}
