package cache

import (
	"context"
	"time"
)

// Store is the key-value contract the response cache writes through. Backed
// by Redis in production and by MemoryStore in tests / no-Redis deployments.
type Store interface {
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	// Get returns the value and whether the key was present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}
