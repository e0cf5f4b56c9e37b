package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the trading core from concrete market-data
// and broker implementations (Angel One SmartAPI, Redis cache, simulator).

// CandleSource supplies historical candles in strictly increasing time
// order. The core does not validate or repair ordering; short histories
// degrade to indicator fallbacks rather than errors.
type CandleSource interface {
	// GetCandles returns up to count most-recent candles for the
	// instrument at the given timeframe (e.g. "FIVE_MINUTE").
	GetCandles(ctx context.Context, inst Instrument, timeframe string, count int) ([]Candle, error)
}

// LTPSource supplies the latest traded price for an instrument.
type LTPSource interface {
	LTP(ctx context.Context, inst Instrument) (float64, error)
}

// OrderPlacer places and cancels broker orders. Failures are logged and
// the triggering attempt abandoned; there is no automatic retry.
type OrderPlacer interface {
	// PlaceOrder submits a market order and returns the broker order ID.
	PlaceOrder(ctx context.Context, inst Instrument, direction Direction, qty int64) (string, error)

	// CancelOrder cancels a previously placed order.
	CancelOrder(ctx context.Context, orderID string) error
}
