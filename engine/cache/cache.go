package cache

import "sync"

// Cache is a keyed store of loaded resources owned by its caller. It replaces process-wide
// caches so separate devices never share resources. Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      *sync.Mutex
	entries map[K]V
	release func(V)
}

// New creates an empty Cache.
//
// Parameters:
//   - options: functional options for the cache
//
// Returns:
//   - *Cache[K, V]: the new cache
func New[K comparable, V any](options ...CacheBuilderOption[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		mu:      &sync.Mutex{},
		entries: make(map[K]V),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get returns the value stored under key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrCreate returns the value under key, calling create to build and store it when missing.
// A failed create stores nothing, so the next call tries again. create runs without the lock
// held; if another caller stored the key meanwhile, the stored value wins and the new one is released.
//
// Parameters:
//   - key: the cache key
//   - create: builds the value on a miss
//
// Returns:
//   - V: the cached or created value
//   - error: the error returned by create
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.releaseValue(v)
		return existing, nil
	}
	c.entries[key] = v
	c.mu.Unlock()
	return v, nil
}

// Put stores v under key, releasing any value it replaces.
func (c *Cache[K, V]) Put(key K, v V) {
	c.mu.Lock()
	old, ok := c.entries[key]
	c.entries[key] = v
	c.mu.Unlock()
	if ok {
		c.releaseValue(old)
	}
}

// Invalidate removes and releases the value under key.
//
// Returns:
//   - bool: true if a value was removed
func (c *Cache[K, V]) Invalidate(key K) bool {
	c.mu.Lock()
	old, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.releaseValue(old)
	}
	return ok
}

// Clear removes and releases every value.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[K]V)
	c.mu.Unlock()
	for _, v := range old {
		c.releaseValue(v)
	}
}

// Len returns the number of cached values.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) releaseValue(v V) {
	if c.release != nil {
		c.release(v)
	}
}
