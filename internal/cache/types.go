package cache

// Cache is the interface for caching single-call RPC results.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a cached result by key
	// Returns the cached data and true if found, nil and false otherwise
	Get(key string) ([]byte, bool)

	// Set stores a result in the cache with the given key
	Set(key string, value []byte)

	// Close releases any resources held by the cache
	Close()
}
