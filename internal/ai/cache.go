package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerdictCache remembers location verdicts by normalized location text.
type VerdictCache interface {
	// Get returns the cached verdict and whether one was found.
	Get(ctx context.Context, key string) (verdict bool, ok bool, err error)
	Set(ctx context.Context, key string, verdict bool) error
}

// normalizeLocation lower-cases and collapses whitespace so trivially
// different spellings share a cache entry.
func normalizeLocation(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MemoryCache is a process-local VerdictCache.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]bool
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]bool)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (bool, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, verdict bool) error {
	c.mu.Lock()
	c.m[key] = verdict
	c.mu.Unlock()
	return nil
}

const redisKeyPrefix = "jobsift:location:"

// RedisCache shares verdicts across runs and hosts.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps a go-redis client. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis get: %w", err)
	}
	return val == "1", true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, verdict bool) error {
	val := "0"
	if verdict {
		val = "1"
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
