package ports

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with TTLs, used by read-through repository
// decorators.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
