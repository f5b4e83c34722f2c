package cache

import (
	"time"

	"github.com/ferranti/homeledger/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache
// package. The same settings apply to each of the three namespaces.
type Config struct {
	Capacity             int
	NumShards            int
	TTL                  time.Duration
	EvictionPercentage   int
	MissingRecordStorage bool
	EvictionInterval     time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewService constructs the default three-namespace cache service, one
// sturdyc-backed store per namespace so each clears independently.
func NewService(cfg Config) (Service, error) {
	internal := cfg.toInternal()

	data, err := cacheinfra.NewStore(internal)
	if err != nil {
		return nil, err
	}
	validation, err := cacheinfra.NewStore(internal)
	if err != nil {
		return nil, err
	}
	calculation, err := cacheinfra.NewStore(internal)
	if err != nil {
		return nil, err
	}

	return &service{
		data:        &namespace{store: data},
		validation:  &namespace{store: validation},
		calculation: &namespace{store: calculation},
	}, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
}
