// Package memory implements the cache port with sharded in-process maps.
// Expired entries are dropped lazily on Get; an optional background sweep
// reclaims entries that are never read again.
package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/pavelzorin/shortlink/internal/cache"
)

const shardCount = 32

type item struct {
	value      []byte
	expiration time.Time
	noExpire   bool
}

func (i *item) expired(now time.Time) bool {
	return !i.noExpire && now.After(i.expiration)
}

type shard struct {
	mu    sync.RWMutex
	items map[string]*item
}

// Cache is a sharded in-memory cache. Keys are distributed over independent
// shards so unrelated keys never contend on the same lock.
type Cache struct {
	shards [shardCount]*shard
	done   chan struct{}
	once   sync.Once
}

// New creates an in-memory cache. If sweepInterval is positive, a background
// goroutine periodically evicts expired entries; Stop terminates it.
func New(sweepInterval time.Duration) *Cache {
	c := &Cache{
		done: make(chan struct{}),
	}

	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]*item)}
	}

	if sweepInterval > 0 {
		go c.sweep(sweepInterval)
	}

	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

// Get returns the value stored under key, or cache.ErrCacheMiss if the key
// is absent or its TTL has elapsed.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := c.shardFor(key)

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, cache.ErrCacheMiss
	}

	if it.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock: the entry may have been replaced.
		if cur, ok := s.items[key]; ok && cur.expired(time.Now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()

		return nil, cache.ErrCacheMiss
	}

	value := make([]byte, len(it.value))
	copy(value, it.value)

	return value, nil
}

// Set stores value under key for the given TTL. A zero TTL means the entry
// does not expire.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	it := &item{
		value:    valueCopy,
		noExpire: ttl == 0,
	}
	if ttl > 0 {
		it.expiration = time.Now().Add(ttl)
	}

	s := c.shardFor(key)

	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := c.shardFor(key)

	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()

	return nil
}

// Stop terminates the background sweep goroutine, if any.
func (c *Cache) Stop() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()

			for _, s := range c.shards {
				s.mu.Lock()
				for key, it := range s.items {
					if it.expired(now) {
						delete(s.items, key)
					}
				}
				s.mu.Unlock()
			}
		}
	}
}
