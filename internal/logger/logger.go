// Package logger sets up the process-wide structured logger (log/slog,
// JSON to stdout) and carries a per-scan-cycle ID through
// context.Context so every log line of one watchlist pass correlates.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type ctxKey string

const scanIDKey ctxKey = "scan_id"

// Init creates the structured logger for the given service and installs
// it as the slog default.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a config string to a slog level. Unknown values
// default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewScanID builds a scan-cycle ID from the cycle's wall-clock start.
// Format: "scan-{unixNano}".
func NewScanID(ts time.Time) string {
	return fmt.Sprintf("scan-%d", ts.UnixNano())
}

// WithScanID stores a scan-cycle ID in the context.
func WithScanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scanIDKey, id)
}

// ScanID extracts the scan-cycle ID from context. Returns "" if unset.
func ScanID(ctx context.Context) string {
	if v, ok := ctx.Value(scanIDKey).(string); ok {
		return v
	}
	return ""
}

// ScanAttrs returns slog attributes carrying the scan-cycle ID.
// Usage: logger.Info("msg", logger.ScanAttrs(ctx)...)
func ScanAttrs(ctx context.Context) []any {
	id := ScanID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("scan_id", id)}
}
