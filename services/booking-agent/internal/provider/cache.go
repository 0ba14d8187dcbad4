package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventTypeCache remembers the uuid behind a (profile, event) pair.
type EventTypeCache interface {
	Get(ctx context.Context, profile, event string) (string, bool, error)
	Set(ctx context.Context, profile, event, uuid string) error
}

func cacheKey(profile, event string) string {
	return "slotbooker:event_type:" + strings.ToLower(profile) + "/" + strings.ToLower(event)
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, profile, event string) (string, bool, error) {
	v, err := c.client.Get(ctx, cacheKey(profile, event)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, profile, event, uuid string) error {
	return c.client.Set(ctx, cacheKey(profile, event), uuid, c.ttl).Err()
}

// MemoryCache is used when no redis is configured.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, profile, event string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[cacheKey(profile, event)]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, profile, event, uuid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(profile, event)] = uuid
	return nil
}
