package store

import (
	"context"

	"github.com/uptrace/bun"
)

// Criteria shapes a select query: predicates, sort order, limit.
type Criteria func(q *bun.SelectQuery) *bun.SelectQuery

// Fetch returns the entities matching the criteria. An empty result is a
// valid, empty (never nil) slice; only infrastructure failures error.
func Fetch[T any](ctx context.Context, h *Handle, op string, criteria Criteria) ([]T, error) {
	var out []T
	err := h.Read(ctx, op, func(ctx context.Context, db bun.IDB) error {
		q := db.NewSelect().Model(&out)
		if criteria != nil {
			q = criteria(q)
		}
		return q.Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// FetchOne returns the first entity matching the criteria, with found
// reporting whether any row matched.
func FetchOne[T any](ctx context.Context, h *Handle, op string, criteria Criteria) (T, bool, error) {
	var zero T
	rows, err := Fetch[T](ctx, h, op, func(q *bun.SelectQuery) *bun.SelectQuery {
		if criteria != nil {
			q = criteria(q)
		}
		return q.Limit(1)
	})
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}
	return rows[0], true, nil
}

// Count returns the number of entities matching the criteria.
func Count[T any](ctx context.Context, h *Handle, op string, criteria Criteria) (int, error) {
	var n int
	err := h.Read(ctx, op, func(ctx context.Context, db bun.IDB) error {
		// T is a pointer type; the typed nil carries the table metadata.
		var m T
		q := db.NewSelect().Model(m)
		if criteria != nil {
			q = criteria(q)
		}
		count, err := q.Count(ctx)
		if err != nil {
			return err
		}
		n = count
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
