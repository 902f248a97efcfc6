package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	timestamp time.Time
}

// Memory is a thread-safe in-memory cache with optional TTL.
type Memory struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	ttl     time.Duration
}

// NewMemory creates an in-memory cache. A zero or negative TTL means
// entries never expire.
func NewMemory(ttl time.Duration) *Memory {
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Get retrieves a value, expiring it lazily when the TTL has passed.
func (c *Memory) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if c.ttl > 0 && time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return entry.value, true
}

// Set stores a value.
func (c *Memory) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, timestamp: time.Now()}
	return nil
}

// Len returns the number of stored entries, including expired ones.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ Cache = (*Memory)(nil)
