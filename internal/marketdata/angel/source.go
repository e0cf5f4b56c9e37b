// Package angel adapts the Angel One SmartAPI into the engine's market
// data ports: historical candles over REST and last-traded prices from
// the websocket feed with a REST fallback.
package angel

import (
	"context"
	"fmt"
	"time"

	"autotradev1/internal/model"
	"autotradev1/pkg/smartconnect"
)

// interval durations keyed by SmartAPI interval names.
var intervals = map[string]time.Duration{
	"ONE_MINUTE":     time.Minute,
	"THREE_MINUTE":   3 * time.Minute,
	"FIVE_MINUTE":    5 * time.Minute,
	"TEN_MINUTE":     10 * time.Minute,
	"FIFTEEN_MINUTE": 15 * time.Minute,
	"THIRTY_MINUTE":  30 * time.Minute,
	"ONE_HOUR":       time.Hour,
	"ONE_DAY":        24 * time.Hour,
}

// Source fetches historical candles from the SmartAPI REST endpoint.
type Source struct {
	client *smartconnect.Client
	ist    *time.Location
	now    func() time.Time
}

// NewSource wraps an authenticated client. now defaults to time.Now.
func NewSource(client *smartconnect.Client, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		ist = time.FixedZone("IST", 5*3600+1800)
	}
	return &Source{client: client, ist: ist, now: now}
}

// GetCandles implements model.CandleSource. The request window is
// padded generously (market gaps, weekends, holidays) and trimmed to
// the newest count bars.
func (s *Source) GetCandles(ctx context.Context, inst model.Instrument, timeframe string, count int) ([]model.Candle, error) {
	span, ok := intervals[timeframe]
	if !ok {
		return nil, fmt.Errorf("angel: unknown timeframe %q", timeframe)
	}

	to := s.now().In(s.ist)
	// Intraday sessions cover ~6.25h of a day; 4x padding absorbs
	// overnight and weekend gaps for any practical count.
	from := to.Add(-span * time.Duration(count) * 4)

	const layout = "2006-01-02 15:04"
	rows, err := s.client.GetCandleData(ctx, inst.Exchange, inst.Token, timeframe,
		from.Format(layout), to.Format(layout))
	if err != nil {
		return nil, fmt.Errorf("angel: candles for %s: %w", inst.Key(), err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, model.Candle{
			Time:   r.Time.Unix(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return candles, nil
}

// LTP implements model.LTPSource over REST. Prefer Stream when the
// websocket feed is connected.
func (s *Source) LTP(ctx context.Context, inst model.Instrument) (float64, error) {
	return s.client.LTP(ctx, inst.Exchange, inst.Symbol+"-EQ", inst.Token)
}
