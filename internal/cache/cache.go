package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type item struct {
	value      []byte
	expiration int64
}

// Cache is a TTL map for catalog read responses. It caches product metadata
// only; stock is always read from the store. Constructed and injected, never
// a package global.
type Cache struct {
	items map[string]item
	mu    sync.RWMutex
	ttl   time.Duration
	stop  chan struct{}
}

// New returns a cache with the given default TTL and starts the janitor.
func New(defaultTTL time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]item),
		ttl:   defaultTTL,
		stop:  make(chan struct{}),
	}
	go c.cleanupExpired()
	return c
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	close(c.stop)
}

// Set stores raw bytes under key with the default TTL.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{
		value:      value,
		expiration: time.Now().Add(c.ttl).UnixNano(),
	}
}

// Get returns the bytes for key, or false if absent or expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found || time.Now().UnixNano() > it.expiration {
		return nil, false
	}
	return it.value, true
}

// Delete removes a single key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeleteByPrefix removes every key starting with prefix. Used to invalidate
// list responses after an admin write.
func (c *Cache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Size returns the number of entries currently held.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Marshal serializes value and stores it.
func (c *Cache) Marshal(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.Set(key, data)
	return nil
}

// Unmarshal loads and deserializes into target; found=false on miss.
func (c *Cache) Unmarshal(key string, target interface{}) (bool, error) {
	data, found := c.Get(key)
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now().UnixNano()
			c.mu.Lock()
			for key, it := range c.items {
				if now > it.expiration {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
