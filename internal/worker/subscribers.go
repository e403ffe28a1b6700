package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/events"
	"github.com/streetcats/report-service/internal/observability"
	"github.com/streetcats/report-service/internal/service"
)

var reportEvents = []events.EventType{
	events.EventReportCreated,
	events.EventReportClaimed,
	events.EventReportResolved,
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// RegisterStatsInvalidation drops cached global stats on every report event.
// Failures are logged; the entry still expires on its TTL.
func RegisterStatsInvalidation(dispatcher events.Dispatcher, cache service.StatsCache, logger *zap.Logger) {
	if dispatcher == nil || cache == nil {
		return
	}
	handler := func(ctx context.Context, event events.Event) error {
		if err := cache.Invalidate(ctx); err != nil {
			logger.Warn("stats cache invalidation failed",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
		return nil
	}
	for _, eventType := range reportEvents {
		dispatcher.Subscribe(eventType, handler)
	}
}

// RegisterEventMetrics counts report events.
func RegisterEventMetrics(dispatcher events.Dispatcher, metrics *observability.Metrics) {
	if dispatcher == nil || metrics == nil {
		return
	}
	handler := func(_ context.Context, event events.Event) error {
		metrics.RecordReportEvent(string(event.Type))
		return nil
	}
	for _, eventType := range reportEvents {
		dispatcher.Subscribe(eventType, handler)
	}
}
