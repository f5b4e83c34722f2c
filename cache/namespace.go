package cache

import (
	"context"

	"github.com/ferranti/homeledger/internal/cacheinfra"
)

// namespace adapts a string-keyed backing store to the structured-key
// Namespace interface. Keys are rendered once at the boundary; the store
// never sees Key values.
type namespace struct {
	store *cacheinfra.Store
}

var _ Namespace = (*namespace)(nil)

func (n *namespace) GetOrFetch(ctx context.Context, key Key, fetchFn any) (any, error) {
	return n.store.GetOrFetch(ctx, key.String(), fetchFn)
}

func (n *namespace) Invalidate(ctx context.Context, keys ...Key) error {
	rendered := make([]string, len(keys))
	for i, k := range keys {
		rendered[i] = k.String()
	}
	n.store.Delete(rendered...)
	return ctx.Err()
}

func (n *namespace) InvalidateFamily(ctx context.Context, family FamilyKey) error {
	n.store.DeleteWhere(family.Matches)
	return ctx.Err()
}

func (n *namespace) Clear(ctx context.Context) error {
	n.store.Clear()
	return ctx.Err()
}

// service bundles the three independently cleared namespaces.
type service struct {
	data        *namespace
	validation  *namespace
	calculation *namespace
}

var _ Service = (*service)(nil)

func (s *service) Data() Namespace        { return s.data }
func (s *service) Validation() Namespace  { return s.validation }
func (s *service) Calculation() Namespace { return s.calculation }

func (s *service) Clear(ctx context.Context) error {
	for _, ns := range []*namespace{s.data, s.validation, s.calculation} {
		if err := ns.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}
