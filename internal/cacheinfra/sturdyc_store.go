// Package cacheinfra holds the sturdyc-backed cache store used by the
// public cache package. One Store backs one namespace; the sturdyc client
// provides sharded concurrent access, TTL eviction, and stampede
// protection on misses.
package cacheinfra

import (
	"context"
	"reflect"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the settings for one cache store.
type Config struct {
	// Capacity is the maximum number of entries the store holds.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent
	// access. Higher values improve concurrency at a memory cost.
	// Must be greater than 0.
	NumShards int

	// TTL is the time-to-live for cached entries. Invalidation on writes
	// keeps the cache consistent; TTL is the backstop for entries no
	// write ever touches. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage is what share of entries to evict when the
	// store reaches capacity. Must be between 1 and 100.
	EvictionPercentage int

	// MissingRecordStorage remembers keys that resolved to no value so
	// repeated misses skip the source.
	MissingRecordStorage bool

	// EvictionInterval sets how often expired entries are collected.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with defaults sized for a single
// process caching entity lists and booleans.
func DefaultConfig() Config {
	return Config{
		Capacity:             10000,
		NumShards:            64,
		TTL:                  10 * time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: false,
		EvictionInterval:     0,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

func (c Config) toSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}

// Store is one string-keyed read-through cache over a sturdyc client.
type Store struct {
	client *sturdyc.Client[any]
}

// NewStore validates cfg and builds a Store.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.toSturdycOptions()...,
	)

	return &Store{client: client}, nil
}

// GetOrFetch returns the cached value for key, calling fetchFn on a miss
// and caching the result. fetchFn must have the shape
// func(context.Context) (T, error); the value is stored and returned as
// any, with the caller re-asserting the concrete type.
func (s *Store) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	return s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return callFetchFn(ctx, fetchFn)
	})
}

// Delete removes the given keys.
func (s *Store) Delete(keys ...string) {
	for _, key := range keys {
		s.client.Delete(key)
	}
}

// DeleteWhere removes every key the match function accepts. Used for
// family invalidation, where the match encodes prefix-with-separator
// semantics.
func (s *Store) DeleteWhere(match func(key string) bool) {
	for _, key := range s.client.ScanKeys() {
		if match(key) {
			s.client.Delete(key)
		}
	}
}

// Clear removes every entry from the store.
func (s *Store) Clear() {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
}

// Size returns the number of cached entries.
func (s *Store) Size() int {
	return len(s.client.ScanKeys())
}

// validateFetchFn checks that fetchFn has the shape
// func(context.Context) (T, error) before it is invoked via reflection.
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}
	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return nil
}

// callFetchFn invokes a pre-validated fetch function, erasing its
// concrete result type.
func callFetchFn(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if results[0].IsValid() && results[0].CanInterface() {
		result = results[0].Interface()
	}

	var err error
	if results[1].IsValid() && !results[1].IsNil() {
		err = results[1].Interface().(error)
	}

	return result, err
}
