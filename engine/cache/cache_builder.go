package cache

// CacheBuilderOption is a functional option applied to a Cache during construction.
type CacheBuilderOption[K comparable, V any] func(*Cache[K, V])

// WithRelease sets a function that runs for every value removed from the cache by
// Put, Invalidate or Clear.
//
// Parameters:
//   - release: the function that frees a value
//
// Returns:
//   - CacheBuilderOption[K, V]: a function that applies the release func to a Cache
func WithRelease[K comparable, V any](release func(V)) CacheBuilderOption[K, V] {
	return func(c *Cache[K, V]) {
		c.release = release
	}
}
