// Package cache provides pluggable byte-level caching for HTTP clients.
//
// Three backends are included:
//   - FileCache: file-based storage for CLI usage (default)
//   - RedisCache: Redis-backed storage for server deployments
//   - NullCache: no-op backend for tests or --refresh runs
//
// Entries carry a per-write TTL. Expired entries are treated as misses and
// lazily removed. All backends are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache stores raw bytes under string keys with per-entry expiration.
type Cache interface {
	// Get retrieves a value. The bool reports whether a fresh entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
