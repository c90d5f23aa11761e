package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"posevault/model"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis cache client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

// Get reads a cached JSON value into dest.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// Set writes a cached value as JSON.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, string(data), expiration).Err()
}

// Delete removes a cache entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// BuildCacheKey builds a cache key.
func BuildCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += fmt.Sprintf(":%v", param)
	}
	return key
}

const CacheKeyShareToken = "share:token"

// ShareCache holds active share records by token. Entries never outlive
// the share's expiry.
type ShareCache struct {
	cache Cache
	ttl   time.Duration
}

func NewShareCache(cache Cache, ttl time.Duration) *ShareCache {
	return &ShareCache{cache: cache, ttl: ttl}
}

// Get returns the cached share for token.
func (c *ShareCache) Get(ctx context.Context, token string) (*model.SharedGallery, bool) {
	var share model.SharedGallery
	if err := c.cache.Get(ctx, BuildCacheKey(CacheKeyShareToken, token), &share); err != nil {
		return nil, false
	}
	return &share, true
}

// Set caches an active share until min(ttl, expires_at).
func (c *ShareCache) Set(ctx context.Context, share *model.SharedGallery) error {
	if !share.IsActive {
		return nil
	}
	ttl := c.ttl
	if share.ExpiresAt != nil {
		if until := time.Until(*share.ExpiresAt); until < ttl {
			ttl = until
		}
	}
	if ttl <= 0 {
		return nil
	}
	return c.cache.Set(ctx, BuildCacheKey(CacheKeyShareToken, share.ShareToken), share, ttl)
}

// Invalidate drops the cached entry for token.
func (c *ShareCache) Invalidate(ctx context.Context, token string) error {
	return c.cache.Delete(ctx, BuildCacheKey(CacheKeyShareToken, token))
}
