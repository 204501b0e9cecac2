package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/treefam/treefam-backend/internal/core/ports"
)

// RateLimitRedisRepository implements rate limiting counter storage with Redis.
type RateLimitRedisRepository struct {
	r      redis.Cmdable
	prefix string
}

func NewRateLimitRedisRepository(r redis.Cmdable, prefix string) *RateLimitRedisRepository {
	return &RateLimitRedisRepository{r: r, prefix: prefix}
}

var _ ports.RateLimitStore = (*RateLimitRedisRepository)(nil)

// IncrementWindow increments a per-caller counter for a fixed window.
func (repo *RateLimitRedisRepository) IncrementWindow(ctx context.Context, key string, window time.Duration, ttl time.Duration) (int, time.Time, error) {
	now := time.Now()
	windowStart := now.Truncate(window)
	redisKey := fmt.Sprintf("%s:%s:%d", repo.prefix, key, windowStart.Unix())

	pipe := repo.r.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, windowStart, err
	}
	return int(incr.Val()), windowStart, nil
}
