package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/config"
	"github.com/streetcats/report-service/internal/events"
)

const defaultWebhookTimeout = 5 * time.Second

// NotificationService logs report events and forwards them to the
// configured webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	webhookURL string
	httpClient *http.Client
}

// NewNotificationService creates the service. An empty webhook URL only logs.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RegisterHandlers subscribes to report events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReportCreated, n.handle)
	n.dispatcher.Subscribe(events.EventReportClaimed, n.handle)
	n.dispatcher.Subscribe(events.EventReportResolved, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("report event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("report_id", event.ReportID),
		zap.String("actor", event.Actor.Name),
		zap.Any("payload", event.Payload))
	return n.postWebhook(ctx, event)
}

// postWebhook sends the event as JSON. Any non-2xx answer is an error.
func (n *NotificationService) postWebhook(ctx context.Context, event events.Event) error {
	if n.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook answered %d for %s", resp.StatusCode, event.ID)
	}
	n.logger.Debug("webhook delivered",
		zap.String("event_id", event.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}
