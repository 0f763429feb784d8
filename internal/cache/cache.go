package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry is a cached value and the time it was stored.
type Entry[V any] struct {
	Value     V
	Timestamp time.Time
}

// Cache is a concurrency-safe TTL map. A zero TTL keeps entries forever.
type Cache[V any] struct {
	ttl     time.Duration
	entries sync.Map
	now     func() time.Time
}

// New creates a cache whose entries expire after ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{ttl: ttl, now: time.Now}
}

// GenerateKey hashes the normalized parts into a stable cache key.
// Parts are trimmed and lower-cased so "Kigali" and " kigali" collide.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.entries.Load(key)
	if !ok {
		return zero, false
	}
	entry := val.(Entry[V])
	if c.ttl > 0 && c.now().Sub(entry.Timestamp) > c.ttl {
		c.entries.CompareAndDelete(key, val)
		return zero, false
	}
	return entry.Value, true
}

// Put stores value under key.
func (c *Cache[V]) Put(key string, value V) {
	c.entries.Store(key, Entry[V]{
		Value:     value,
		Timestamp: c.now(),
	})
}

// Len counts live and expired entries alike.
func (c *Cache[V]) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
