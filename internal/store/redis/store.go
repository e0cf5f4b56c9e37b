// Package redis caches candle history and publishes the engine's scan
// log to Redis. The cache sits between the engine and the broker's
// historical API so repeated scans of the same watchlist do not pay
// the REST round-trip every interval.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"autotradev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	candleTTL = 2 * time.Minute

	scanLogStream = "scanlog"
	scanLogMaxLen = 5000
	scanLogPubSub = "pub:scanlog"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Store wraps a Redis client behind a circuit breaker so a Redis
// outage degrades to cache misses instead of failed scans.
type Store struct {
	client  *goredis.Client
	breaker *Breaker
	logger  *slog.Logger
}

// New connects and pings the server.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis connected", slog.String("addr", cfg.Addr))
	return &Store{
		client:  client,
		breaker: NewBreaker(5, 10*time.Second),
		logger:  logger,
	}, nil
}

// Client exposes the underlying client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

func candleKey(inst model.Instrument, timeframe string) string {
	return "candles:" + timeframe + ":" + inst.Exchange + ":" + inst.Symbol
}

// GetCandles returns the cached series for an instrument, or ok=false
// on a miss. Breaker-open and transport errors count as misses.
func (s *Store) GetCandles(ctx context.Context, inst model.Instrument, timeframe string) ([]model.Candle, bool) {
	var raw string
	err := s.breaker.Execute(func() error {
		var err error
		raw, err = s.client.Get(ctx, candleKey(inst, timeframe)).Result()
		return err
	})
	if err != nil {
		if err != goredis.Nil && err != ErrBreakerOpen {
			s.logger.Warn("candle cache read failed",
				slog.String("key", inst.Key()), slog.String("err", err.Error()))
		}
		return nil, false
	}
	var candles []model.Candle
	if err := json.Unmarshal([]byte(raw), &candles); err != nil {
		return nil, false
	}
	return candles, true
}

// PutCandles stores a series with a short TTL; failures only log.
func (s *Store) PutCandles(ctx context.Context, inst model.Instrument, timeframe string, candles []model.Candle) {
	data, err := json.Marshal(candles)
	if err != nil {
		return
	}
	err = s.breaker.Execute(func() error {
		return s.client.Set(ctx, candleKey(inst, timeframe), data, candleTTL).Err()
	})
	if err != nil && err != ErrBreakerOpen {
		s.logger.Warn("candle cache write failed",
			slog.String("key", inst.Key()), slog.String("err", err.Error()))
	}
}

// AppendScanLog appends one engine log entry to the capped scanlog
// stream and publishes it for live subscribers. Best effort.
func (s *Store) AppendScanLog(ctx context.Context, entry model.ScanLogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	err = s.breaker.Execute(func() error {
		pipe := s.client.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: scanLogStream,
			MaxLen: scanLogMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": string(data)},
		})
		pipe.Publish(ctx, scanLogPubSub, string(data))
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil && err != ErrBreakerOpen {
		s.logger.Warn("scan log publish failed", slog.String("err", err.Error()))
	}
}

// RecentScanLog reads the newest count entries from the scanlog
// stream, oldest first.
func (s *Store) RecentScanLog(ctx context.Context, count int64) ([]model.ScanLogEntry, error) {
	var msgs []goredis.XMessage
	err := s.breaker.Execute(func() error {
		var err error
		msgs, err = s.client.XRevRangeN(ctx, scanLogStream, "+", "-", count).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("redis scanlog read: %w", err)
	}
	out := make([]model.ScanLogEntry, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		raw, _ := msgs[i].Values["data"].(string)
		var entry model.ScanLogEntry
		if json.Unmarshal([]byte(raw), &entry) == nil {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
