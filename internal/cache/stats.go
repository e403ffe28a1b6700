// Package cache keeps short-lived derived data and request counters in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streetcats/report-service/internal/domain"
)

const (
	globalStatsKey           = "reports:stats:global"
	globalStatsGenerationKey = "reports:stats:global:gen"
)

type statsPayload struct {
	Generation int64 `json:"generation"`
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
}

// StatsCache stores the global report counters tagged with the generation
// they were counted under.
type StatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStatsCache returns a cache whose entries expire after ttl.
func NewStatsCache(client redis.Cmdable, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the cached counters. A miss, including an entry from an older
// generation, is (zero, false, nil).
func (c *StatsCache) Get(ctx context.Context) (domain.ReportStats, bool, error) {
	vals, err := c.client.MGet(ctx, globalStatsGenerationKey, globalStatsKey).Result()
	if err != nil {
		return domain.ReportStats{}, false, err
	}
	raw, ok := vals[1].(string)
	if !ok {
		return domain.ReportStats{}, false, nil
	}
	generation, err := parseGeneration(vals[0])
	if err != nil {
		return domain.ReportStats{}, false, err
	}
	var payload statsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.ReportStats{}, false, err
	}
	if payload.Generation != generation {
		return domain.ReportStats{}, false, nil
	}
	return domain.ReportStats{
		Total:      payload.Total,
		New:        payload.New,
		InProgress: payload.InProgress,
		Resolved:   payload.Resolved,
	}, true, nil
}

// Generation returns the current invalidation counter.
func (c *StatsCache) Generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, globalStatsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// Set stores stats counted under generation for the configured ttl.
func (c *StatsCache) Set(ctx context.Context, stats domain.ReportStats, generation int64) error {
	raw, err := json.Marshal(statsPayload{
		Generation: generation,
		Total:      stats.Total,
		New:        stats.New,
		InProgress: stats.InProgress,
		Resolved:   stats.Resolved,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, globalStatsKey, raw, c.ttl).Err()
}

// Invalidate bumps the generation and drops the cached counters.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, globalStatsGenerationKey).Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, globalStatsKey).Err()
}

func parseGeneration(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
