package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/events"
)

type countingCache struct {
	invalidations int
}

func (c *countingCache) Get(context.Context) (domain.ReportStats, bool, error) {
	return domain.ReportStats{}, false, nil
}

func (c *countingCache) Generation(context.Context) (int64, error) { return 0, nil }

func (c *countingCache) Set(context.Context, domain.ReportStats, int64) error { return nil }

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidations++
	return nil
}

func TestStatsInvalidatedOnEveryReportEvent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	cache := &countingCache{}
	RegisterStatsInvalidation(dispatcher, cache, zap.NewNop())

	for _, eventType := range reportEvents {
		assert.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(eventType, "r1", events.ActorFrom(nil), nil)))
	}
	assert.Equal(t, 3, cache.invalidations)
}
