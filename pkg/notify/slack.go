package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// SlackChannel posts a formatted message to a Slack incoming webhook. Unlike
// the teacher's bot-token Slack client (pkg/slack, which threads replies
// through the conversations API), §4.9 only asks for a one-shot webhook
// POST — there is no channel history to search, so the webhook model (plain
// net/http, no SDK) is the right fit and keeps this leaf off an otherwise
// ungrounded third-party Slack SDK.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

func NewSlackChannel(webhookURL string, logger *slog.Logger) *SlackChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *SlackChannel) Send(ctx context.Context, n model.AnomalyNotification) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook url not configured")
	}

	text := fmt.Sprintf("[%s] %s (rule=%s, detected_at=%s)", n.Severity, n.Message, n.RuleID, n.DetectedAt.Format(time.RFC3339))
	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
