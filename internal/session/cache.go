package session

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache maps a session key to a cached Session, bounded by LRU eviction
// (§4.10). The key is whatever the caller chooses to resume on — a wire
// session id, a ticket's opaque name, or (per the supplemented
// SessionStore behavior) a stable per-peer key such as a remote address,
// so a server can resume a peer that reconnects from a fresh wire
// session id behind an address-translating relay.
//
// Safe for concurrent use: population is an atomic replace, and Get
// always returns a clone so the caller can't mutate the cached entry.
type Cache struct {
	mu    sync.Mutex
	byKey *lru.Cache[string, *Session]
}

// NewCache creates a Cache holding at most capacity entries.
func NewCache(capacity int) (*Cache, error) {
	l, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, err
	}

	return &Cache{byKey: l}, nil
}

// Get looks up key, returning a clone of the cached Session.
func (c *Cache) Get(key string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.byKey.Get(key)
	if !ok {
		return nil, false
	}

	return s.Clone(), true
}

// Put replaces whatever is cached under key with s.
func (c *Cache) Put(key string, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byKey.Add(key, s)
}

// Remove evicts key, if present.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byKey.Remove(key)
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.byKey.Len()
}
