// Package cache provides the process-wide, three-namespace cache the
// entity services read through.
//
// # Namespaces
//
// A Service holds three independently cleared namespaces:
//
//   - Data: query results (entity lists, scoped lists)
//   - Validation: existence and membership booleans
//   - Calculation: computed decimal aggregates (entry/group totals)
//
// The split keeps invalidation fan-out precise: creating a category
// clears category list and existence families, while item writes clear
// only item lists and the affected totals. Clearing one namespace never
// evicts another's entries.
//
// # Keys
//
// Keys are structured values rather than concatenated strings:
//
//	key := cache.NewKey("category", "exists", "food", groupID, excludeID)
//
// Key rendering is deterministic, and every scope parameter participates,
// so existence checks with different scope or exclusion combinations can
// never collide. A FamilyKey names all keys sharing a Service and Family;
// InvalidateFamily clears the whole family regardless of scope, using
// separator-aware prefix matching.
//
// # Read-through usage
//
//	categories, err := cache.GetOrFetch(ctx, svc.Data(), key,
//		func(ctx context.Context) ([]*model.Category, error) {
//			return fetchFromStore(ctx)
//		})
//
// A hit returns without touching the source; a miss runs the fetch,
// caches the result, and returns it. The sturdyc backend coalesces
// concurrent misses for the same key.
//
// # Consistency contract
//
// Writers invalidate the affected families synchronously before their
// call returns, so a caller that writes and then re-reads observes its
// own write. Independent callers racing a write may observe either the
// pre- or post-write state until their next call; the store is the
// arbiter of record.
package cache
