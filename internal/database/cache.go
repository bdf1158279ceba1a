package database

import (
	"bptracker/config"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	CACHE_GENERAL_DB = 0
	CACHE_USER_DB    = 1
	CACHE_EVENTS_DB  = 2
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")

	if config.DatabaseCacheAddress == "" || config.DatabaseCachePort == 0 {
		return log.Error(
			"failed to create cache client, address or port is empty",
			"address", config.DatabaseCacheAddress,
			"port", config.DatabaseCachePort,
		)
	}

	address := fmt.Sprintf("%s:%d", config.DatabaseCacheAddress, config.DatabaseCachePort)

	clients := []struct {
		target *CacheClient
		db     int
		name   string
	}{
		{&s.Cache.General, CACHE_GENERAL_DB, "General"},
		{&s.Cache.User, CACHE_USER_DB, "User"},
		{&s.Cache.Events, CACHE_EVENTS_DB, "Events"},
	}

	for _, c := range clients {
		client, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{address},
			SelectDB:    c.db,
		})
		if err != nil {
			return log.Err("failed to create cache client", err, "cache", c.name, "address", address)
		}
		*c.target = client
	}

	log.Info("Cache clients connected", "address", address)
	return nil
}

// CacheBuilder reads and writes JSON values. A nil client turns every
// operation into a miss so callers fall through to the database.
type CacheBuilder struct {
	cache CacheClient
	key   string
	value any
	ttl   time.Duration
	ctx   context.Context
}

func NewCacheBuilder(cache CacheClient, key any) *CacheBuilder {
	return &CacheBuilder{
		cache: cache,
		key:   fmt.Sprint(key),
		ctx:   context.Background(),
	}
}

func (b *CacheBuilder) WithStruct(value any) *CacheBuilder {
	b.value = value
	return b
}

func (b *CacheBuilder) WithTTL(ttl time.Duration) *CacheBuilder {
	b.ttl = ttl
	return b
}

func (b *CacheBuilder) WithContext(ctx context.Context) *CacheBuilder {
	if ctx != nil {
		b.ctx = ctx
	}
	return b
}

func (b *CacheBuilder) Key() string {
	return b.key
}

func (b *CacheBuilder) Set() error {
	if b.cache == nil {
		return nil
	}

	payload, err := json.Marshal(b.value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", b.key, err)
	}

	cmd := b.cache.B().Set().Key(b.key).Value(valkey.BinaryString(payload))
	if b.ttl > 0 {
		return b.cache.Do(b.ctx, cmd.Ex(b.ttl).Build()).Error()
	}
	return b.cache.Do(b.ctx, cmd.Build()).Error()
}

func (b *CacheBuilder) Get(dest any) (bool, error) {
	if b.cache == nil {
		return false, nil
	}

	payload, err := b.cache.Do(b.ctx, b.cache.B().Get().Key(b.key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", b.key, err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value for %s: %w", b.key, err)
	}

	return true, nil
}

func (b *CacheBuilder) Delete() error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Do(b.ctx, b.cache.B().Del().Key(b.key).Build()).Error()
}
