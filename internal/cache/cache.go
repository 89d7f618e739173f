// Package cache provides a session read cache backed by Redis, with an
// in-memory fallback when Redis is unavailable or not configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"idea-forge/internal/logging"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = fmt.Errorf("cache miss")

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a two-tier JSON cache: Redis first, process memory second.
type Cache struct {
	client *redis.Client // nil when Redis is not configured

	mem   map[string]memEntry
	memMu sync.RWMutex

	defaultTTL time.Duration
}

// New creates a cache. redisURL may be empty, in which case only the
// in-memory tier is used. A Redis that fails the initial ping is logged
// and treated as absent.
func New(redisURL string, defaultTTL time.Duration) *Cache {
	c := &Cache{
		mem:        make(map[string]memEntry),
		defaultTTL: defaultTTL,
	}
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logging.S().Warnf("invalid REDIS_URL, falling back to memory cache: %v", err)
		} else {
			client := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := client.Ping(ctx).Err(); err != nil {
				logging.S().Warnf("redis unreachable, falling back to memory cache: %v", err)
				_ = client.Close()
			} else {
				c.client = client
			}
		}
	}
	go c.cleanupLoop()
	return c
}

// GetJSON retrieves and unmarshals a cached value.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	if c.client != nil {
		if val, err := c.client.Get(ctx, key).Result(); err == nil {
			return json.Unmarshal([]byte(val), dest)
		}
	}

	c.memMu.RLock()
	entry, ok := c.mem[key]
	c.memMu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return ErrCacheMiss
	}
	return json.Unmarshal(entry.value, dest)
}

// SetJSON marshals and stores a value under the default TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if c.client != nil {
		if err := c.client.Set(ctx, key, data, c.defaultTTL).Err(); err == nil {
			return nil
		}
		// Fall through to the memory tier on Redis errors.
	}

	c.memMu.Lock()
	c.mem[key] = memEntry{value: data, expiresAt: time.Now().Add(c.defaultTTL)}
	c.memMu.Unlock()
	return nil
}

// Delete removes a key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c.client != nil {
		c.client.Del(ctx, key)
	}
	c.memMu.Lock()
	delete(c.mem, key)
	c.memMu.Unlock()
}

// Close releases the Redis connection if one exists.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.memMu.Lock()
		for key, entry := range c.mem {
			if now.After(entry.expiresAt) {
				delete(c.mem, key)
			}
		}
		c.memMu.Unlock()
	}
}

// SessionKey returns the cache key for a session's state.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}
