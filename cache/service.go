package cache

import (
	"context"

	"github.com/shopspring/decimal"
)

// FetchFn is the function signature a namespace expects when fetching
// from the source of truth on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Namespace exposes the read-through operations of one cache namespace.
// Keys are structured (see Key); invalidation works either per key or for
// a whole family. Implementations must be safe for concurrent callers,
// and invalidation must be visible before the call returns.
type Namespace interface {
	// GetOrFetch returns the cached value for key, invoking fetchFn to
	// populate the cache on a miss. fetchFn must have the shape
	// func(context.Context) (T, error).
	GetOrFetch(ctx context.Context, key Key, fetchFn any) (any, error)

	// Invalidate removes the exact keys from the namespace.
	Invalidate(ctx context.Context, keys ...Key) error

	// InvalidateFamily removes every key belonging to the family.
	InvalidateFamily(ctx context.Context, family FamilyKey) error

	// Clear empties the namespace.
	Clear(ctx context.Context) error
}

// Service groups the three cache namespaces the entity services share.
// Each namespace is cleared independently: dropping stale entity lists
// must not evict existence-check booleans, and computed totals are
// invalidated on their own schedule. A single Service instance wired at
// startup gives process-wide sharing; tests construct their own.
type Service interface {
	// Data caches query results: entity lists, scoped lists.
	Data() Namespace

	// Validation caches existence and membership booleans.
	Validation() Namespace

	// Calculation caches computed decimal aggregates.
	Calculation() Namespace

	// Clear empties all three namespaces.
	Clear(ctx context.Context) error
}

// GetOrFetch is the type-safe wrapper over Namespace.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, ns Namespace, key Key, fetchFn FetchFn[T]) (T, error) {
	result, err := ns.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// GetOrCheck reads a boolean through the validation namespace.
func GetOrCheck(ctx context.Context, ns Namespace, key Key, fetchFn FetchFn[bool]) (bool, error) {
	return GetOrFetch(ctx, ns, key, fetchFn)
}

// GetOrCompute reads a decimal aggregate through the calculation namespace.
func GetOrCompute(ctx context.Context, ns Namespace, key Key, fetchFn FetchFn[decimal.Decimal]) (decimal.Decimal, error) {
	return GetOrFetch(ctx, ns, key, fetchFn)
}
