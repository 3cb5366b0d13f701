package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     int64
	expiresAt time.Time
}

// Cache is a TTL'd in-memory counter store. Entries expire lazily on access
// and a background sweeper reclaims the rest. It holds only transient values
// (rate-limit windows), never user or loan data.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	stop    chan struct{}
	once    sync.Once
}

func New(sweepInterval time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	go c.sweep(sweepInterval)
	return c
}

// Increment bumps the counter at key, starting a fresh window with the given
// TTL when the key is absent or expired. It returns the new count and the
// window's expiry.
func (c *Cache) Increment(key string, ttl time.Duration) (int64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	e, ok := c.entries[key]
	if !ok || now.After(e.expiresAt) {
		e = entry{expiresAt: now.Add(ttl)}
	}
	e.value++
	c.entries[key] = e
	return e.value, e.expiresAt
}

// Get returns the counter at key, or zero if absent or expired.
func (c *Cache) Get(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return 0
	}
	return e.value
}

// Close stops the background sweeper.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) sweep(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
