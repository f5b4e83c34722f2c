// Package testsupport provides helpers shared by tests across packages.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ferranti/homeledger/cache"
	"github.com/ferranti/homeledger/store"
)

// TempDBPath returns a database path inside a per-test temporary
// directory. The directory is removed automatically when the test ends.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "homeledger.db")
}

// OpenStore opens a fresh store handle on a temporary database and
// registers its cleanup. Tests that sever the store intentionally may
// call Close themselves; the registered cleanup tolerates that.
func OpenStore(t *testing.T, ctx context.Context) *store.Handle {
	t.Helper()

	h, err := store.Open(ctx, TempDBPath(t), nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// NewCache builds a cache service with default configuration.
func NewCache(t *testing.T) cache.Service {
	t.Helper()

	c, err := cache.NewService(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to build cache service: %v", err)
	}
	return c
}

// MustDecimal parses a decimal literal or fails the test.
func MustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("failed to parse decimal %q: %v", s, err)
	}
	return d
}
