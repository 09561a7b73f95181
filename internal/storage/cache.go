package storage

import (
	"context"
	"time"
)

// Cache stores JSON-encoded values with a TTL.
type Cache interface {
	// GetJSON decodes the value at key into out. It reports false on a miss.
	GetJSON(ctx context.Context, key string, out interface{}) (bool, error)

	// SetJSON encodes v and stores it at key for ttl.
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}
