package cache

import (
	"context"
	"sync"
	"time"
)

// Memory implements Cache using an in-process map
type Memory struct {
	data    map[string]*memoryItem
	mu      sync.RWMutex
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an in-memory cache holding at most maxSize entries
// (unbounded when maxSize <= 0) and starts its cleanup loop.
func NewMemory(maxSize int, cleanupInterval time.Duration) *Memory {
	c := &Memory{
		data:    make(map[string]*memoryItem),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanup(cleanupInterval)
	}
	return c
}

// Get retrieves a value from cache
func (c *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.data[key]
	if !exists || c.now().After(item.expiresAt) {
		return nil, ErrNotFound
	}
	return item.value, nil
}

// Set stores a value with TTL
func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && c.maxSize > 0 && len(c.data) >= c.maxSize {
		c.evictLocked()
	}

	c.data[key] = &memoryItem{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// evictLocked drops expired entries, or the entry closest to expiry when
// none has expired.
func (c *Memory) evictLocked() {
	now := c.now()
	var victim string
	var earliest time.Time
	for k, v := range c.data {
		if now.After(v.expiresAt) {
			delete(c.data, k)
			continue
		}
		if victim == "" || v.expiresAt.Before(earliest) {
			victim, earliest = k, v.expiresAt
		}
	}
	if len(c.data) >= c.maxSize && victim != "" {
		delete(c.data, victim)
	}
}

// Delete removes a value from cache
func (c *Memory) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Len returns the number of stored entries, expired or not
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close stops the cleanup loop
func (c *Memory) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Memory) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, item := range c.data {
				if now.After(item.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
