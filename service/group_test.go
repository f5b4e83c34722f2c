package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ferranti/homeledger/model"
)

func TestDeleteGroup_EntryGuard(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, ctx)

	group := e.mustGroup(t, ctx, "Family", "EUR")
	entry := e.mustEntry(t, ctx, group.ID)

	err := e.groups.DeleteGroup(ctx, group.ID)
	var guard *GuardViolation
	if !errors.As(err, &guard) {
		t.Fatalf("DeleteGroup() = %v, want *GuardViolation", err)
	}
	if guard.Entity != "group" {
		t.Errorf("GuardViolation.Entity = %q, want %q", guard.Entity, "group")
	}

	// Group and entry both survive the refused delete.
	if _, err := e.groups.GroupByID(ctx, group.ID); err != nil {
		t.Errorf("group vanished after guarded delete: %v", err)
	}
	if _, err := e.entries.EntryByID(ctx, entry.ID); err != nil {
		t.Errorf("entry vanished after guarded delete: %v", err)
	}
}

func TestDeleteGroup_CategoryGuard(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, ctx)

	group := e.mustGroup(t, ctx, "Family", "EUR")
	category := e.mustCategory(t, ctx, "Food", group.ID)

	err := e.groups.DeleteGroup(ctx, group.ID)
	var guard *GuardViolation
	if !errors.As(err, &guard) {
		t.Fatalf("DeleteGroup() = %v, want *GuardViolation", err)
	}

	if _, err := e.categories.CategoryByID(ctx, category.ID); err != nil {
		t.Errorf("category vanished after guarded delete: %v", err)
	}
}

// Memberships alone do not block a group delete; they cascade with it,
// and the membership caches must not serve the cascaded rows afterwards.
func TestDeleteGroup_CascadesMemberships(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, ctx)

	user := e.mustUser(t, ctx, "ada", "ada@x.com")
	group := e.mustGroup(t, ctx, "Family", "EUR")
	e.mustMembership(t, ctx, user.ID, group.ID, model.RoleOwner)

	// Warm the membership caches.
	member, err := e.memberships.IsMember(ctx, user.ID, group.ID)
	if err != nil {
		t.Fatalf("IsMember() error: %v", err)
	}
	if !member {
		t.Fatal("IsMember() = false before group delete")
	}
	if _, err := e.memberships.GroupsForUser(ctx, user.ID); err != nil {
		t.Fatalf("GroupsForUser() error: %v", err)
	}

	if err := e.groups.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup() error: %v", err)
	}

	member, err = e.memberships.IsMember(ctx, user.ID, group.ID)
	if err != nil {
		t.Fatalf("IsMember() after delete error: %v", err)
	}
	if member {
		t.Error("IsMember() = true after the group was deleted (stale answer served)")
	}

	groups, err := e.memberships.GroupsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GroupsForUser() after delete error: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("GroupsForUser() after delete = %d groups, want 0", len(groups))
	}
}

func TestGroupNameExists_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, ctx)

	group := e.mustGroup(t, ctx, "Family", "EUR")

	exists, err := e.groups.NameExists(ctx, "FAMILY", nil)
	if err != nil {
		t.Fatalf("NameExists() error: %v", err)
	}
	if !exists {
		t.Error("NameExists(FAMILY) = false for stored name Family")
	}

	exists, err = e.groups.NameExists(ctx, "family", &group.ID)
	if err != nil {
		t.Fatalf("NameExists() error: %v", err)
	}
	if exists {
		t.Error("NameExists() = true when the only match is excluded")
	}
}

func TestCreateGroup_CurrencyValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, ctx)

	tests := []struct {
		name     string
		currency string
	}{
		{name: "too short", currency: "EU"},
		{name: "lowercase", currency: "eur"},
		{name: "too long", currency: "EURO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.groups.CreateGroup(ctx, CreateGroupParams{Name: "G", Currency: tt.currency})
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("CreateGroup() = %v, want *ValidationError", err)
			}
		})
	}
}

func TestUpdateGroup_InvalidatesList(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, ctx)

	group := e.mustGroup(t, ctx, "zzz", "EUR")
	e.mustGroup(t, ctx, "aaa", "EUR")

	if _, err := e.groups.Groups(ctx); err != nil {
		t.Fatalf("warm Groups() error: %v", err)
	}

	if err := e.groups.UpdateGroup(ctx, group.ID, model.GroupPatch{Name: model.Set("abc")}); err != nil {
		t.Fatalf("UpdateGroup() error: %v", err)
	}

	groups, err := e.groups.Groups(ctx)
	if err != nil {
		t.Fatalf("Groups() error: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "aaa" || groups[1].Name != "abc" {
		got := []string{}
		for _, g := range groups {
			got = append(got, g.Name)
		}
		t.Errorf("Groups() after rename = %v, want [aaa abc]", got)
	}
}
