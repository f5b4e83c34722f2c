// Package store is the persistence gateway over the relational engine.
// It wraps a bun/SQLite handle behind serialized access: every read and
// write for a handle goes through its mutex, mirroring the one-writer
// discipline SQLite wants, and all failures surface as *StoreError.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"

	"github.com/ferranti/homeledger/model"
)

// ErrClosed is reported (wrapped in a StoreError) when an operation is
// attempted on a closed handle.
var ErrClosed = errors.New("store is closed")

// StoreError wraps any failure coming out of the persistence gateway:
// I/O errors, constraint violations, schema problems. Op names the
// failing operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Handle is a serialized connection to one SQLite database. All access
// for a handle is funneled through its mutex; callers block until the
// handle schedules their operation. Entities are only read or mutated
// inside that window.
type Handle struct {
	mu     sync.Mutex
	db     *bun.DB
	log    *slog.Logger
	closed bool
}

// Open opens (creating if needed) the database at path, enables foreign
// keys, and bootstraps the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("open", fmt.Errorf("create database directory: %w", err))
		}
	}

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr("open", err)
	}
	// A single connection keeps the pragma session-wide and serializes
	// statement execution at the driver level as well.
	sqldb.SetMaxOpenConns(1)

	if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		sqldb.Close()
		return nil, storeErr("open", fmt.Errorf("enable foreign keys: %w", err))
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	h := &Handle{db: db, log: logger}
	if err := h.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "store opened", "path", path)
	return h, nil
}

// Close releases the underlying database. Later operations on the
// handle fail with ErrClosed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.log.Info("store closed")
	return h.db.Close()
}

// Read runs fn against the handle under its lock. fn must not retain the
// bun.IDB past its return.
func (h *Handle) Read(ctx context.Context, op string, fn func(ctx context.Context, db bun.IDB) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return storeErr(op, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}
	if err := fn(ctx, h.db); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// Write runs fn inside a transaction under the handle's lock. On any
// error the transaction rolls back, so a failed write leaves no
// half-applied state visible to later operations.
func (h *Handle) Write(ctx context.Context, op string, fn func(ctx context.Context, tx bun.Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return storeErr(op, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}
	if err := h.db.RunInTx(ctx, nil, fn); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// bootstrap creates the schema: six entity tables with their cascade
// rules, plus the uniqueness backstop indexes (the services check
// uniqueness up front via exists queries; the indexes catch racing
// writers).
func (h *Handle) bootstrap(ctx context.Context) error {
	models := []any{
		(*model.User)(nil),
		(*model.Group)(nil),
		(*model.Category)(nil),
		(*model.Entry)(nil),
		(*model.Item)(nil),
		(*model.UserGroup)(nil),
	}

	for _, m := range models {
		_, err := h.db.NewCreateTable().
			Model(m).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			return storeErr("bootstrap", fmt.Errorf("create table for %T: %w", m, err))
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS users_email_ci ON users (lower(email))",
		"CREATE UNIQUE INDEX IF NOT EXISTS groups_name_ci ON groups (lower(name))",
		"CREATE UNIQUE INDEX IF NOT EXISTS categories_group_name_ci ON categories (group_id, lower(name))",
		"CREATE UNIQUE INDEX IF NOT EXISTS user_groups_user_group ON user_groups (user_id, group_id)",
		"CREATE INDEX IF NOT EXISTS entries_group ON entries (group_id)",
		"CREATE INDEX IF NOT EXISTS items_entry ON items (entry_id)",
	}
	for _, stmt := range indexes {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return storeErr("bootstrap", fmt.Errorf("create index: %w", err))
		}
	}

	h.log.DebugContext(ctx, "schema bootstrapped", "tables", len(models))
	return nil
}
