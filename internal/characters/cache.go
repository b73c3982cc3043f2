package characters

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const listCacheKey = "characters:all"

// cacheCommands is the slice of the Redis API the cache needs.
type cacheCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedStore decorates a Store with a read-through Redis cache on the full
// listing. Mutations invalidate the cached listing. Cache failures degrade
// to the inner store; they are logged, never surfaced to callers.
type CachedStore struct {
	Store
	commands cacheCommands
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedStore wraps the store. A zero ttl keeps entries until the next
// invalidation.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return newCachedStore(inner, client, ttl, logger)
}

func newCachedStore(inner Store, commands cacheCommands, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{Store: inner, commands: commands, ttl: ttl, logger: logger}
}

// FindAll serves the listing from cache when present.
func (cache *CachedStore) FindAll(ctx context.Context) ([]Character, error) {
	cached, getErr := cache.commands.Get(ctx, listCacheKey).Result()
	if getErr == nil {
		var listing []Character
		if decodeErr := json.Unmarshal([]byte(cached), &listing); decodeErr == nil {
			return listing, nil
		}
		cache.logger.Warn("dropping undecodable cache entry", zap.String("key", listCacheKey))
		cache.invalidate(ctx)
	} else if !errors.Is(getErr, redis.Nil) {
		cache.logger.Warn("cache read failed", zap.String("key", listCacheKey), zap.Error(getErr))
	}

	listing, listErr := cache.Store.FindAll(ctx)
	if listErr != nil {
		return nil, listErr
	}
	if encoded, encodeErr := json.Marshal(listing); encodeErr == nil {
		if setErr := cache.commands.Set(ctx, listCacheKey, encoded, cache.ttl).Err(); setErr != nil {
			cache.logger.Warn("cache write failed", zap.String("key", listCacheKey), zap.Error(setErr))
		}
	}
	return listing, nil
}

// Create writes through and invalidates the cached listing.
func (cache *CachedStore) Create(ctx context.Context, character Character) (Character, error) {
	created, createErr := cache.Store.Create(ctx, character)
	if createErr != nil {
		return Character{}, createErr
	}
	cache.invalidate(ctx)
	return created, nil
}

// Update writes through and invalidates the cached listing.
func (cache *CachedStore) Update(ctx context.Context, id string, character Character) (Character, error) {
	updated, updateErr := cache.Store.Update(ctx, id, character)
	if updateErr != nil {
		return Character{}, updateErr
	}
	cache.invalidate(ctx)
	return updated, nil
}

// Delete writes through and invalidates the cached listing.
func (cache *CachedStore) Delete(ctx context.Context, id string) error {
	if deleteErr := cache.Store.Delete(ctx, id); deleteErr != nil {
		return deleteErr
	}
	cache.invalidate(ctx)
	return nil
}

func (cache *CachedStore) invalidate(ctx context.Context) {
	if delErr := cache.commands.Del(ctx, listCacheKey).Err(); delErr != nil {
		cache.logger.Warn("cache invalidation failed", zap.String("key", listCacheKey), zap.Error(delErr))
	}
}
