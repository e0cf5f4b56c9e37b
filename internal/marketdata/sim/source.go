// Package sim provides a synthetic market-data source for paper mode
// and demos: a seeded random-walk candle generator plus an LTP feed
// derived from the last generated bar. All randomness lives here, never
// in the decision or simulation paths.
package sim

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"autotradev1/internal/model"
)

// barSeconds is the spacing of generated candles (5 minutes).
const barSeconds = 300

// Generate produces count random-walk candles ending at end. Each bar
// moves by up to ±1.2% with a slight upward drift, matching the shape
// of real intraday series closely enough to exercise every indicator.
// The same seed always yields the same series.
func Generate(count int, basePrice float64, seed int64, end time.Time) []model.Candle {
	rng := rand.New(rand.NewSource(seed))
	candles := make([]model.Candle, 0, count)
	price := basePrice
	endSec := end.Unix()

	for i := count - 1; i >= 0; i-- {
		ts := endSec - int64(i)*barSeconds
		change := (rng.Float64() - 0.48) * price * 0.012
		open := round2(price)
		close := round2(price + change)
		high := round2(math.Max(math.Max(open, close), open+rng.Float64()*price*0.005))
		low := round2(math.Min(math.Min(open, close), open-rng.Float64()*price*0.005))
		volume := int64(rng.Float64()*50000) + 10000
		candles = append(candles, model.Candle{
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
		price = close
	}
	return candles
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Source serves generated candles and last prices per instrument. Each
// instrument gets its own deterministic walk derived from the seed and
// the instrument key, so watchlist symbols do not move in lockstep.
type Source struct {
	seed  int64
	base  float64
	now   func() time.Time
	mu    sync.Mutex
	walks map[string][]model.Candle
}

// New creates a simulated source. basePrice anchors every walk;
// now defaults to time.Now.
func New(seed int64, basePrice float64, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	if basePrice <= 0 {
		basePrice = 22400
	}
	return &Source{
		seed:  seed,
		base:  basePrice,
		now:   now,
		walks: make(map[string][]model.Candle),
	}
}

// GetCandles implements model.CandleSource.
func (s *Source) GetCandles(_ context.Context, inst model.Instrument, _ string, count int) ([]model.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := s.series(inst, count)
	if len(series) > count {
		series = series[len(series)-count:]
	}
	out := make([]model.Candle, len(series))
	copy(out, series)
	return out, nil
}

// LTP implements model.LTPSource using the close of the latest bar.
func (s *Source) LTP(_ context.Context, inst model.Instrument) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := s.series(inst, 1)
	return series[len(series)-1].Close, nil
}

func (s *Source) series(inst model.Instrument, minLen int) []model.Candle {
	key := inst.Key()
	series, ok := s.walks[key]
	if !ok || len(series) < minLen {
		n := minLen
		if n < 250 {
			n = 250
		}
		series = Generate(n, s.base, s.seed+instSeed(key), s.now())
		s.walks[key] = series
	}
	return series
}

// instSeed derives a stable per-instrument offset from the key bytes.
func instSeed(key string) int64 {
	var h int64
	for _, c := range key {
		h = h*31 + int64(c)
	}
	return h
}
