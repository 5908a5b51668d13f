package revocation

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the revocation cache when no size is configured.
const DefaultCacheSize = 500

// Cache memoizes jti -> revoked lookups in a bounded LRU. Entries have no
// time-based expiry; eviction is purely by recency. Safe for concurrent use.
//
// The cache is not authoritative. After a successful Store insert callers Set
// the jti to true; lookups memoize through SetIfAbsent so a false read before
// the insert cannot replace that true.
type Cache struct {
	lru *lru.Cache[string, bool]
}

// NewCache returns a cache holding at most size entries. A non-positive size
// selects DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, bool](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the memoized value for jti and whether it was present.
func (c *Cache) Get(jti string) (revoked bool, ok bool) {
	return c.lru.Get(jti)
}

// Set memoizes revoked for jti, evicting the least recently used entry at capacity.
func (c *Cache) Set(jti string, revoked bool) {
	c.lru.Add(jti, revoked)
}

// SetIfAbsent memoizes revoked for jti unless an entry already exists, and
// returns the value now held for jti.
func (c *Cache) SetIfAbsent(jti string, revoked bool) bool {
	if ok, _ := c.lru.ContainsOrAdd(jti, revoked); ok {
		if current, found := c.lru.Peek(jti); found {
			return current
		}
	}
	return revoked
}

// Delete evicts jti.
func (c *Cache) Delete(jti string) {
	c.lru.Remove(jti)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of memoized entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
