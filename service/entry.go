package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ferranti/homeledger/cache"
	"github.com/ferranti/homeledger/model"
	"github.com/ferranti/homeledger/store"
)

// EntryService provides CRUD over entries. Entry lists are read straight
// from the store: entries change often and their queries are cheap, so
// caching them buys little. Deleting an entry still touches the cache,
// because the store cascades the delete to the entry's items.
type EntryService struct {
	store *store.Handle
	cache cache.Service
	log   *slog.Logger
}

func NewEntryService(h *store.Handle, c cache.Service, logger *slog.Logger) *EntryService {
	return &EntryService{store: h, cache: c, log: serviceLogger(logger, "entries")}
}

// Entries returns all entries, newest first.
func (s *EntryService) Entries(ctx context.Context) ([]*model.Entry, error) {
	return store.Fetch[*model.Entry](ctx, s.store, "fetch entries", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("date DESC")
	})
}

// GroupEntries returns one group's entries, newest first.
func (s *EntryService) GroupEntries(ctx context.Context, groupID uuid.UUID) ([]*model.Entry, error) {
	return store.Fetch[*model.Entry](ctx, s.store, "fetch group entries", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", groupID).OrderExpr("date DESC")
	})
}

// EntryByID looks up one entry.
func (s *EntryService) EntryByID(ctx context.Context, id uuid.UUID) (*model.Entry, error) {
	entry, found, err := store.FetchOne[*model.Entry](ctx, s.store, "fetch entry", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return entry, nil
}

// CreateEntryParams carries the input for CreateEntry. CategoryID is
// optional.
type CreateEntryParams struct {
	Description string
	Date        time.Time
	GroupID     uuid.UUID
	CategoryID  *uuid.UUID
}

// CreateEntry persists a new entry in its group.
func (s *EntryService) CreateEntry(ctx context.Context, p CreateEntryParams) (*model.Entry, error) {
	ts := now()
	entry := &model.Entry{
		ID:          uuid.New(),
		Description: p.Description,
		Date:        p.Date.UTC(),
		GroupID:     p.GroupID,
		CategoryID:  p.CategoryID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	err := s.store.Write(ctx, "create entry", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(entry).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "entry created",
		"entry_id", entry.ID, "group_id", entry.GroupID, "date", entry.Date)
	return entry, nil
}

// UpdateEntry applies the set fields of the patch. Setting CategoryID to
// a nil pointer detaches the entry from its category.
func (s *EntryService) UpdateEntry(ctx context.Context, id uuid.UUID, patch model.EntryPatch) error {
	entry, err := s.EntryByID(ctx, id)
	if err != nil {
		return err
	}

	if v, ok := patch.Description.Get(); ok {
		entry.Description = v
	}
	if v, ok := patch.Date.Get(); ok {
		entry.Date = v.UTC()
	}
	if v, ok := patch.CategoryID.Get(); ok {
		entry.CategoryID = v
	}
	entry.UpdatedAt = now()

	err = s.store.Write(ctx, "update entry", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(entry).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "entry updated", "entry_id", id)
	return nil
}

// DeleteEntry removes an entry. The store cascades the delete to the
// entry's items, so item lists and both total families are stale
// afterwards and get invalidated here.
func (s *EntryService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	entry, err := s.EntryByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.store.Write(ctx, "delete entry", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model(entry).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	invalidateFamilies(ctx, s.log, s.cache.Data(), famItemAll, famItemByEntry, famItemByGroup)
	invalidateFamilies(ctx, s.log, s.cache.Calculation(), famEntryTotal, famGroupTotal)
	s.log.InfoContext(ctx, "entry deleted", "entry_id", id)
	return nil
}
