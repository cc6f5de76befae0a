package artifact

import (
	"context"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Store is the key-value store backing the artifact cache. Values are opaque
// byte blobs keyed by string, with expiry.
type Store interface {
	// Exists reports whether a key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the blob for a key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores a blob with the given time-to-live.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// RefreshTTL resets the expiry of an existing key.
	RefreshTTL(ctx context.Context, key string, ttl time.Duration) error
}
