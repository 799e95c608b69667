package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terminal-bench/casgen/pkg/circuit"
)

// Cache is a bounded get/set-with-TTL store for derived demographics and
// medical lookups. It prefers redis when available and falls back to an
// in-process map. Misses and backend failures are transparent: callers
// recompute, they never see an error from a lookup. A circuit breaker stops
// it hammering an unreachable redis on every lookup.
type Cache struct {
	rdb        *redis.Client
	breaker    *circuit.Breaker
	ttl        time.Duration
	maxEntries int

	mu    sync.RWMutex
	local map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// New creates a cache. redisURL may be empty, in which case only the local
// map is used.
func New(redisURL string, ttl time.Duration, maxEntries int) *Cache {
	c := &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		local:      make(map[string]entry),
	}
	if redisURL != "" {
		if opts, err := redis.ParseURL(redisURL); err == nil {
			c.rdb = redis.NewClient(opts)
			c.breaker = circuit.New(5, 30*time.Second)
		}
	}
	return c
}

// Get returns the cached value for key, or false on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb != nil && c.breaker.Allow() {
		val, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			c.breaker.Success()
			return val, true
		case err == redis.Nil:
			c.breaker.Success()
		default:
			c.breaker.Failure()
		}
	}
	c.mu.RLock()
	e, ok := c.local[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key with the cache's TTL. A concurrent fill of
// the same key is harmless: last write wins, both writes carry the same
// computed value.
func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	if c.rdb != nil && c.breaker.Allow() {
		if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
			c.breaker.Failure()
		} else {
			c.breaker.Success()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.local) >= c.maxEntries {
		c.evictExpiredLocked()
	}
	if len(c.local) >= c.maxEntries {
		// Still full after expiry sweep: drop an arbitrary entry to stay bounded.
		for k := range c.local {
			delete(c.local, k)
			break
		}
	}
	c.local[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// GetOrCompute returns the cached value for key, computing and caching it
// on a miss. Compute errors propagate; they are never cached.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	if val, ok := c.Get(ctx, key); ok {
		return val, nil
	}
	val, err := compute()
	if err != nil {
		return nil, err
	}
	c.Set(ctx, key, val)
	return val, nil
}

// Len reports the number of locally cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.local)
}

func (c *Cache) evictExpiredLocked() {
	now := time.Now()
	for k, e := range c.local {
		if now.After(e.expiresAt) {
			delete(c.local, k)
		}
	}
}
