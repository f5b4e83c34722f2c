package di

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ferranti/homeledger/model"
	"github.com/ferranti/homeledger/pkg/testsupport"
	"github.com/ferranti/homeledger/service"
)

func newTestContainer(t *testing.T, ctx context.Context) *Container {
	t.Helper()

	container, err := NewContainer(ctx, Config{DBPath: testsupport.TempDBPath(t)})
	if err != nil {
		t.Fatalf("NewContainer() error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return container
}

// The whole stack, end to end: a user joins a group, an entry with two
// items is recorded, and the exact total comes back through the cache.
func TestContainer_ExpenseScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t, ctx)

	user, err := c.Users().CreateUser(ctx, service.CreateUserParams{Name: "U1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	group, err := c.Groups().CreateGroup(ctx, service.CreateGroupParams{Name: "Family", Currency: "USD"})
	if err != nil {
		t.Fatalf("CreateGroup() error: %v", err)
	}

	if _, err := c.Memberships().CreateMembership(ctx, service.CreateMembershipParams{
		UserID:  user.ID,
		GroupID: group.ID,
		Role:    model.RoleOwner,
	}); err != nil {
		t.Fatalf("CreateMembership() error: %v", err)
	}

	category, err := c.Categories().CreateCategory(ctx, service.CreateCategoryParams{
		Name:    "Food",
		Color:   "#00aa55",
		GroupID: group.ID,
	})
	if err != nil {
		t.Fatalf("CreateCategory() error: %v", err)
	}

	entry, err := c.Entries().CreateEntry(ctx, service.CreateEntryParams{
		Description: "groceries",
		Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		GroupID:     group.ID,
		CategoryID:  &category.ID,
	})
	if err != nil {
		t.Fatalf("CreateEntry() error: %v", err)
	}

	for _, item := range []service.CreateItemParams{
		{Description: "I1", Amount: decimal.RequireFromString("12.34"), Quantity: 1, EntryID: entry.ID},
		{Description: "I2", Amount: decimal.RequireFromString("7.66"), Quantity: 2, EntryID: entry.ID},
	} {
		if _, err := c.Items().CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem(%s) error: %v", item.Description, err)
		}
	}

	want := testsupport.MustDecimal(t, "27.66")
	for name, total := range map[string]func() (decimal.Decimal, error){
		"entry": func() (decimal.Decimal, error) { return c.Items().EntryTotal(ctx, entry.ID) },
		"group": func() (decimal.Decimal, error) { return c.Items().GroupTotal(ctx, group.ID) },
	} {
		got, err := total()
		if err != nil {
			t.Fatalf("%s total error: %v", name, err)
		}
		if !got.Equal(want) {
			t.Errorf("%s total = %s, want %s", name, got, want)
		}
	}

	member, err := c.Memberships().IsMember(ctx, user.ID, group.ID)
	if err != nil {
		t.Fatalf("IsMember() error: %v", err)
	}
	if !member {
		t.Error("IsMember() = false for the joined user")
	}

	exists, err := c.Users().EmailExists(ctx, "A@X.COM", nil)
	if err != nil {
		t.Fatalf("EmailExists() error: %v", err)
	}
	if !exists {
		t.Error("EmailExists(A@X.COM) = false, want case-insensitive true")
	}
}

func TestContainer_ClearCache(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t, ctx)

	if _, err := c.Users().CreateUser(ctx, service.CreateUserParams{Name: "U", Email: "u@x.com"}); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if _, err := c.Users().Users(ctx); err != nil {
		t.Fatalf("Users() error: %v", err)
	}

	if err := c.CacheService().Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	// After a full clear and a closed store, nothing can be served.
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := c.Users().Users(ctx); err == nil {
		t.Error("Users() succeeded with cleared cache and closed store, want error")
	}
}

func TestNewContainer_BadCacheConfig(t *testing.T) {
	ctx := context.Background()
	cfg := Config{DBPath: testsupport.TempDBPath(t)}
	cfg.Cache.Capacity = -1

	if _, err := NewContainer(ctx, cfg); err == nil {
		t.Fatal("NewContainer() with negative capacity succeeded, want error")
	}
}

func BenchmarkEntryTotal_Warm(b *testing.B) {
	ctx := context.Background()

	container, err := NewContainer(ctx, Config{DBPath: b.TempDir() + "/bench.db"})
	if err != nil {
		b.Fatalf("NewContainer() error: %v", err)
	}
	defer container.Close()

	group, err := container.Groups().CreateGroup(ctx, service.CreateGroupParams{Name: "Bench", Currency: "EUR"})
	if err != nil {
		b.Fatalf("CreateGroup() error: %v", err)
	}
	entry, err := container.Entries().CreateEntry(ctx, service.CreateEntryParams{
		Date:    time.Now(),
		GroupID: group.ID,
	})
	if err != nil {
		b.Fatalf("CreateEntry() error: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := container.Items().CreateItem(ctx, service.CreateItemParams{
			Amount:   decimal.RequireFromString("1.99"),
			Quantity: 2,
			EntryID:  entry.ID,
		}); err != nil {
			b.Fatalf("CreateItem() error: %v", err)
		}
	}

	if _, err := container.Items().EntryTotal(ctx, entry.ID); err != nil {
		b.Fatalf("warm EntryTotal() error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := container.Items().EntryTotal(ctx, entry.ID); err != nil {
			b.Fatalf("EntryTotal() error: %v", err)
		}
	}
}
