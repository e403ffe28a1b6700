package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window request counter keyed by caller.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewLimiter allows limit hits per window for each key.
func NewLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow counts a hit for key. On Redis errors the hit is allowed and the error
// returned so the caller can log it.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	redisKey := fmt.Sprintf("rate:%s:%s", l.prefix, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(l.limit), nil
}
