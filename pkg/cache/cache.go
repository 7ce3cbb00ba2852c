package cache

import "time"

// Cache is a TTL key/value cache. Writes may be applied asynchronously and
// may be dropped by the admission policy, so callers must treat a miss as normal.
type Cache interface {
	// Get returns (value, true) if key is cached and not expired.
	Get(key string) (any, bool)

	// Set stores value under key for ttl. Returns false if the write was dropped.
	Set(key string, value any, ttl time.Duration) bool

	Delete(key string)

	Clear()

	Close()
}
