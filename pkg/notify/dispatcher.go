// Package notify implements the notification dispatcher (§4.9): given one
// anomaly, fan it out to every enabled channel, each in its own error
// boundary so one channel's failure never prevents the others.
package notify

import (
	"context"
	"log/slog"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// Broadcaster delivers an anomaly to connected WebSocket clients — the
// interface is implemented by *ws.Hub.
type Broadcaster interface {
	Broadcast(notification model.AnomalyNotification) int
}

// Config mirrors §4.9's notification config shape.
type Config struct {
	WebSocket WebSocketConfig
	Slack     SlackConfig
	Email     EmailConfig
}

type WebSocketConfig struct {
	Enabled bool
}

type SlackConfig struct {
	Enabled    bool
	WebhookURL string
}

type EmailConfig struct {
	Enabled    bool
	SMTPHost   string
	Recipients []string
}

// Dispatcher fans out anomalies to the configured channels.
type Dispatcher struct {
	cfg    Config
	ws     Broadcaster
	slack  *SlackChannel
	logger *slog.Logger
}

func NewDispatcher(cfg Config, ws Broadcaster, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:    cfg,
		ws:     ws,
		slack:  NewSlackChannel(cfg.Slack.WebhookURL, logger),
		logger: logger,
	}
}

// Dispatch delivers a to every enabled channel, each independently
// error-bounded.
func (d *Dispatcher) Dispatch(ctx context.Context, a model.Anomaly) {
	notification := model.AnomalyNotification{
		Type:       "anomaly",
		AnomalyID:  a.AnomalyID,
		RuleID:     a.RuleID,
		Severity:   a.Severity,
		Message:    a.Message,
		DetectedAt: a.DetectedAt,
	}

	if d.cfg.WebSocket.Enabled && d.ws != nil {
		d.ws.Broadcast(notification)
	}

	if d.cfg.Slack.Enabled {
		if err := d.slack.Send(ctx, notification); err != nil {
			d.logger.Error("slack notification failed", "anomaly_id", a.AnomalyID, "error", err)
		}
	}

	if d.cfg.Email.Enabled {
		sendEmailStub(d.logger, d.cfg.Email.Recipients, notification)
	}
}
