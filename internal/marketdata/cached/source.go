// Package cached wraps a candle source with the Redis read-through
// cache, so back-to-back scans of the same watchlist hit the broker
// API at most once per cache TTL.
package cached

import (
	"context"

	"autotradev1/internal/model"
	"autotradev1/internal/store/redis"
)

// Source is a read-through caching model.CandleSource.
type Source struct {
	upstream model.CandleSource
	store    *redis.Store
}

// New wraps upstream with the cache.
func New(upstream model.CandleSource, store *redis.Store) *Source {
	return &Source{upstream: upstream, store: store}
}

// GetCandles serves from Redis when a fresh cached series large enough
// for the request exists, otherwise fetches upstream and backfills the
// cache. Cache failures degrade silently to upstream.
func (s *Source) GetCandles(ctx context.Context, inst model.Instrument, timeframe string, count int) ([]model.Candle, error) {
	if cached, ok := s.store.GetCandles(ctx, inst, timeframe); ok && len(cached) >= count {
		return cached[len(cached)-count:], nil
	}
	candles, err := s.upstream.GetCandles(ctx, inst, timeframe, count)
	if err != nil {
		return nil, err
	}
	s.store.PutCandles(ctx, inst, timeframe, candles)
	return candles, nil
}
