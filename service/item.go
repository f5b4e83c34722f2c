package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/ferranti/homeledger/cache"
	"github.com/ferranti/homeledger/model"
	"github.com/ferranti/homeledger/store"
)

const itemKeyspace = "item"

var (
	famItemAll     = cache.FamilyKey{Service: itemKeyspace, Family: "all"}
	famItemByEntry = cache.FamilyKey{Service: itemKeyspace, Family: "byEntry"}
	famItemByGroup = cache.FamilyKey{Service: itemKeyspace, Family: "byGroup"}

	famEntryTotal = cache.FamilyKey{Service: itemKeyspace, Family: "entryTotal"}
	famGroupTotal = cache.FamilyKey{Service: itemKeyspace, Family: "groupTotal"}
)

// ItemService provides cached CRUD over items plus the decimal total
// aggregates. Totals live in the calculation namespace and are derived
// from the cached item lists, so a warm total survives store outages the
// same way a warm list does.
type ItemService struct {
	store *store.Handle
	cache cache.Service
	log   *slog.Logger
}

func NewItemService(h *store.Handle, c cache.Service, logger *slog.Logger) *ItemService {
	return &ItemService{store: h, cache: c, log: serviceLogger(logger, "items")}
}

// Items returns all items in creation order.
func (s *ItemService) Items(ctx context.Context) ([]*model.Item, error) {
	key := cache.NewKey(itemKeyspace, "all")
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.Item, error) {
		return store.Fetch[*model.Item](ctx, s.store, "fetch items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("created_at ASC")
		})
	})
}

// EntryItems returns one entry's items in creation order.
func (s *ItemService) EntryItems(ctx context.Context, entryID uuid.UUID) ([]*model.Item, error) {
	key := cache.NewKey(itemKeyspace, "byEntry", entryID)
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.Item, error) {
		return store.Fetch[*model.Item](ctx, s.store, "fetch entry items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("entry_id = ?", entryID).OrderExpr("created_at ASC")
		})
	})
}

// GroupItems returns every item of every entry in the group, in creation
// order.
func (s *ItemService) GroupItems(ctx context.Context, groupID uuid.UUID) ([]*model.Item, error) {
	key := cache.NewKey(itemKeyspace, "byGroup", groupID)
	return cache.GetOrFetch(ctx, s.cache.Data(), key, func(ctx context.Context) ([]*model.Item, error) {
		return store.Fetch[*model.Item](ctx, s.store, "fetch group items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Join("JOIN entries AS e ON e.id = i.entry_id").
				Where("e.group_id = ?", groupID).
				OrderExpr("i.created_at ASC")
		})
	})
}

// ItemByID looks up one item, bypassing the cache.
func (s *ItemService) ItemByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, found, err := store.FetchOne[*model.Item](ctx, s.store, "fetch item", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return item, nil
}

// CreateItemParams carries the input for CreateItem.
type CreateItemParams struct {
	Description string
	Amount      decimal.Decimal
	Quantity    int64
	EntryID     uuid.UUID
}

// CreateItem persists a new item on an entry and invalidates item lists
// and totals.
func (s *ItemService) CreateItem(ctx context.Context, p CreateItemParams) (*model.Item, error) {
	if err := validateQuantity(p.Quantity); err != nil {
		return nil, err
	}

	item := &model.Item{
		ID:          uuid.New(),
		Description: p.Description,
		Amount:      p.Amount,
		Quantity:    p.Quantity,
		EntryID:     p.EntryID,
		CreatedAt:   now(),
	}

	err := s.store.Write(ctx, "create item", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(item).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "item created",
		"item_id", item.ID, "entry_id", item.EntryID, "amount", item.Amount, "quantity", item.Quantity)
	return item, nil
}

// UpdateItem applies the set fields of the patch and invalidates item
// lists and totals.
func (s *ItemService) UpdateItem(ctx context.Context, id uuid.UUID, patch model.ItemPatch) error {
	item, err := s.ItemByID(ctx, id)
	if err != nil {
		return err
	}

	if v, ok := patch.Description.Get(); ok {
		item.Description = v
	}
	if v, ok := patch.Amount.Get(); ok {
		item.Amount = v
	}
	if v, ok := patch.Quantity.Get(); ok {
		if err := validateQuantity(v); err != nil {
			return err
		}
		item.Quantity = v
	}

	err = s.store.Write(ctx, "update item", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(item).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "item updated", "item_id", id)
	return nil
}

// DeleteItem removes an item and invalidates item lists and totals.
func (s *ItemService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	item, err := s.ItemByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.store.Write(ctx, "delete item", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model(item).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.InfoContext(ctx, "item deleted", "item_id", id)
	return nil
}

// EntryTotal returns the sum of amount times quantity over one entry's
// items, exactly, in the calculation namespace. An entry with no items
// totals zero.
func (s *ItemService) EntryTotal(ctx context.Context, entryID uuid.UUID) (decimal.Decimal, error) {
	key := cache.NewKey(itemKeyspace, "entryTotal", entryID)
	return cache.GetOrCompute(ctx, s.cache.Calculation(), key, func(ctx context.Context) (decimal.Decimal, error) {
		items, err := s.EntryItems(ctx, entryID)
		if err != nil {
			return decimal.Zero, err
		}
		return sumItems(items), nil
	})
}

// GroupTotal returns the sum of amount times quantity over every item in
// the group, exactly, in the calculation namespace.
func (s *ItemService) GroupTotal(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	key := cache.NewKey(itemKeyspace, "groupTotal", groupID)
	return cache.GetOrCompute(ctx, s.cache.Calculation(), key, func(ctx context.Context) (decimal.Decimal, error) {
		items, err := s.GroupItems(ctx, groupID)
		if err != nil {
			return decimal.Zero, err
		}
		return sumItems(items), nil
	})
}

func sumItems(items []*model.Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}

func (s *ItemService) invalidate(ctx context.Context) {
	invalidateFamilies(ctx, s.log, s.cache.Data(), famItemAll, famItemByEntry, famItemByGroup)
	invalidateFamilies(ctx, s.log, s.cache.Calculation(), famEntryTotal, famGroupTotal)
}
