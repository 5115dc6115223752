package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/config"
	"github.com/spec-kit/request-desk/internal/events"
)

// Publisher pushes a payload to a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes on Redis pub/sub.
type RedisPublisher struct {
	client redis.Cmdable
}

func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish reports Redis errors only. A channel without subscribers is not an
// error.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if p == nil || p.client == nil {
		return errors.New("redis client not configured")
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// NotificationService fans domain events out to per-user channels.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  Publisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     loggerOrNop(logger).With(zap.String("service", "notifications")),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.deliver)
	n.dispatcher.Subscribe(events.EventRequestBroadcast, n.deliver)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.deliver)
	n.dispatcher.Subscribe(events.EventRequestsTransferred, n.deliver)
}

// Channel returns the pub/sub channel of userID.
func (n *NotificationService) Channel(userID string) string {
	prefix := strings.TrimSpace(n.cfg.ChannelPrefix)
	if prefix == "" {
		prefix = "notifications"
	}
	return prefix + ":" + userID
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event) error {
	if n.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	var errs []error
	for _, userID := range uniqueIDs(event.Recipients...) {
		if err := n.publisher.Publish(ctx, n.Channel(userID), payload); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", userID, err))
		}
	}
	n.logger.Debug("notification delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("request_id", event.RequestID),
		zap.Int("recipients", len(event.Recipients)),
		zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}
