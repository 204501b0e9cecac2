package ports

import (
	"context"
	"time"
)

// RateLimitStore tracks request counts per caller over fixed windows.
type RateLimitStore interface {
	// IncrementWindow bumps the counter for key in the current window and
	// returns the new count together with the window start.
	IncrementWindow(ctx context.Context, key string, window time.Duration, ttl time.Duration) (int, time.Time, error)
}
