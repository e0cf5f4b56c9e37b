package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier POSTs alerts as JSON to a generic HTTP endpoint
// (dashboards, Slack-compatible relays, custom receivers).
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook notifier for the given endpoint.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// webhookPayload is the wire form of one alert.
type webhookPayload struct {
	Source  string `json:"source"`
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
	TS      string `json:"ts"`
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Source:  "autotrade",
		Level:   string(alert.Level),
		Title:   alert.Title,
		Message: alert.Message,
		TS:      w.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	slog.Debug("webhook alert sent", slog.String("url", w.url), slog.String("title", alert.Title))
	return nil
}
