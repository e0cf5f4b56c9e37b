// Package notification delivers trading alerts (entries, exits, order
// failures, emergency stops) to external channels.
package notification

import (
	"context"
	"log/slog"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one trading event to be delivered.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. It is the fallback
// backend when no external channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("alert",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message))
	return nil
}

// MultiNotifier fans one alert out to several backends. A failing
// backend does not stop delivery to the rest; the last error wins.
type MultiNotifier struct {
	backends []Notifier
}

// Multi combines notifiers into one. Multi() with no arguments behaves
// like a LogNotifier-less no-op.
func Multi(backends ...Notifier) *MultiNotifier {
	return &MultiNotifier{backends: backends}
}

func (m *MultiNotifier) Send(ctx context.Context, alert Alert) error {
	var last error
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			last = err
		}
	}
	return last
}
