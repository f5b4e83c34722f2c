// Package di wires the store, the cache, and the entity services into a
// single container so applications construct the whole stack in one call.
package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ferranti/homeledger/cache"
	"github.com/ferranti/homeledger/service"
	"github.com/ferranti/homeledger/store"
)

// Config carries everything the container needs to build the stack.
type Config struct {
	// DBPath is the sqlite database file; parent directories are created
	// as needed.
	DBPath string
	// Cache configures the three cache namespaces. Zero value means
	// cache.DefaultConfig().
	Cache cache.Config
	// Logger is the root logger; services derive component loggers from
	// it. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// Container manages singleton instances of the store handle, the cache
// service, and the six entity services.
type Container struct {
	store  *store.Handle
	cache  cache.Service
	config Config

	users       *service.UserService
	groups      *service.GroupService
	categories  *service.CategoryService
	entries     *service.EntryService
	items       *service.ItemService
	memberships *service.MembershipService
}

// NewContainer opens the store, builds the cache service, and constructs
// every entity service on top of them.
func NewContainer(ctx context.Context, config Config) (*Container, error) {
	cacheCfg := config.Cache
	if cacheCfg == (cache.Config{}) {
		cacheCfg = cache.DefaultConfig()
	}

	cacheService, err := cache.NewService(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("build cache service: %w", err)
	}

	handle, err := store.Open(ctx, config.DBPath, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Container{
		store:       handle,
		cache:       cacheService,
		config:      config,
		users:       service.NewUserService(handle, cacheService, config.Logger),
		groups:      service.NewGroupService(handle, cacheService, config.Logger),
		categories:  service.NewCategoryService(handle, cacheService, config.Logger),
		entries:     service.NewEntryService(handle, cacheService, config.Logger),
		items:       service.NewItemService(handle, cacheService, config.Logger),
		memberships: service.NewMembershipService(handle, cacheService, config.Logger),
	}, nil
}

// Close releases the store handle. Warm cache contents stay readable
// afterwards; only fetches that miss will fail.
func (c *Container) Close() error {
	return c.store.Close()
}

// Users returns the singleton user service.
func (c *Container) Users() *service.UserService { return c.users }

// Groups returns the singleton group service.
func (c *Container) Groups() *service.GroupService { return c.groups }

// Categories returns the singleton category service.
func (c *Container) Categories() *service.CategoryService { return c.categories }

// Entries returns the singleton entry service.
func (c *Container) Entries() *service.EntryService { return c.entries }

// Items returns the singleton item service.
func (c *Container) Items() *service.ItemService { return c.items }

// Memberships returns the singleton membership service.
func (c *Container) Memberships() *service.MembershipService { return c.memberships }

// CacheService exposes the underlying cache for advanced use cases such
// as clearing every namespace at once.
func (c *Container) CacheService() cache.Service { return c.cache }

// Store exposes the underlying store handle.
func (c *Container) Store() *store.Handle { return c.store }

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config { return c.config }
