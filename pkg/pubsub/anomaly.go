package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/model"
)

const AnomalyNotificationsChannel = "anomaly_notifications"

// AnomalyNotifier publishes detected anomalies (§4.8). Failures are logged
// and never block the caller.
type AnomalyNotifier struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewAnomalyNotifier(rdb *redis.Client, logger *slog.Logger) *AnomalyNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnomalyNotifier{rdb: rdb, logger: logger}
}

func (n *AnomalyNotifier) Publish(ctx context.Context, a model.Anomaly) {
	msg := model.AnomalyNotification{
		Type:       "anomaly",
		AnomalyID:  a.AnomalyID,
		RuleID:     a.RuleID,
		Severity:   a.Severity,
		Message:    a.Message,
		DetectedAt: a.DetectedAt,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("failed to marshal anomaly notification", "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, AnomalyNotificationsChannel, body).Err(); err != nil {
		n.logger.Error("failed to publish anomaly notification", "error", err)
	}
}

// AnomalyHandler receives anomaly notifications delivered by AnomalySubscriber.
type AnomalyHandler interface {
	HandleAnomaly(ctx context.Context, n model.AnomalyNotification)
}

// AnomalySubscriber owns a dedicated connection to anomaly_notifications.
type AnomalySubscriber struct {
	pubsub  *redis.PubSub
	handler AnomalyHandler
	logger  *slog.Logger
}

func NewAnomalySubscriber(rdb *redis.Client, handler AnomalyHandler, logger *slog.Logger) *AnomalySubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnomalySubscriber{
		pubsub:  rdb.Subscribe(context.Background(), AnomalyNotificationsChannel),
		handler: handler,
		logger:  logger,
	}
}

func (s *AnomalySubscriber) Run(ctx context.Context) {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var n model.AnomalyNotification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				s.logger.Error("malformed anomaly notification, skipping", "error", err)
				continue
			}
			if n.AnomalyID == "" || n.RuleID == "" || n.Severity == "" {
				s.logger.Error("anomaly notification missing required field, skipping")
				continue
			}
			s.handler.HandleAnomaly(ctx, n)
		}
	}
}

func (s *AnomalySubscriber) Close() error {
	return s.pubsub.Close()
}
