package cache

import (
	"context"
	"time"
)

// Cache is the key/value surface the pipeline uses for small derived
// payloads (latest ratio analysis, latest signal).
type Cache interface {
	// Get retrieves a value. Returns an error when the key is absent or
	// expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL. A non-positive TTL applies the
	// implementation default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases cache resources.
	Close() error
}
