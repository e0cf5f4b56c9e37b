// Package archive persists every fetched candle window to SQLite so
// backtests can replay live history later.
package archive

import (
	"context"
	"log/slog"

	"autotradev1/internal/model"
	sqlitestore "autotradev1/internal/store/sqlite"
)

// Source wraps a CandleSource and archives each successful fetch.
// Archive failures are logged, never surfaced to the scan path.
type Source struct {
	upstream model.CandleSource
	store    *sqlitestore.Store
	logger   *slog.Logger
}

func New(upstream model.CandleSource, store *sqlitestore.Store, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{upstream: upstream, store: store, logger: logger}
}

func (s *Source) GetCandles(ctx context.Context, inst model.Instrument, timeframe string, count int) ([]model.Candle, error) {
	candles, err := s.upstream.GetCandles(ctx, inst, timeframe, count)
	if err != nil {
		return nil, err
	}
	// INSERT OR REPLACE makes re-archiving overlapping windows cheap.
	if err := s.store.SaveCandles(inst, timeframe, candles); err != nil {
		s.logger.Warn("candle archive failed", "symbol", inst.Symbol, "err", err)
	}
	return candles, nil
}
