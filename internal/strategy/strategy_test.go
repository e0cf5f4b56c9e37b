package strategy

import (
	"testing"

	"autotradev1/internal/indicator"
	"autotradev1/internal/model"
	"autotradev1/internal/pattern"
)

// risingCandles builds a steadily climbing series with constant volume.
func risingCandles(n int, start, stepPct float64) []model.Candle {
	candles := make([]model.Candle, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		price = price * (1 + stepPct/100)
		candles[i] = model.Candle{
			Time:   int64(1700000000 + i*300),
			Open:   open,
			High:   price * 1.001,
			Low:    open * 0.999,
			Close:  price,
			Volume: 10000,
		}
	}
	return candles
}

// flatCandles builds a dead-flat series.
func flatCandles(n int, price float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = model.Candle{
			Time:   int64(1700000000 + i*300),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 10000,
		}
	}
	return candles
}

func TestCatalogIsComplete(t *testing.T) {
	want := []string{
		"momentum_breakout", "mean_reversion", "vwap_bounce",
		"ema_crossover", "supertrend_follow", "bollinger_squeeze", "orb",
	}
	for _, id := range want {
		if ByID(id) == nil {
			t.Errorf("catalog missing %q", id)
		}
	}
	if ByID("no_such_strategy") != nil {
		t.Error("ByID on unknown ID should return nil")
	}
}

func TestMomentumBreakoutFiresOnRisingSeries(t *testing.T) {
	candles := risingCandles(60, 1000, 0.2)
	snap := indicator.Compute(candles)
	sig := (&MomentumBreakout{}).Evaluate(candles, snap)
	if sig == nil {
		t.Fatal("expected BUY signal on steady breakout series")
	}
	if sig.Direction != model.Buy {
		t.Errorf("direction: got %v, want BUY", sig.Direction)
	}
	if sig.Confidence != 78 {
		t.Errorf("confidence: got %d, want 78", sig.Confidence)
	}
	if sig.Strategy != "momentum_breakout" {
		t.Errorf("strategy tag: got %q", sig.Strategy)
	}
}

func TestMomentumBreakoutSilentOnFlatSeries(t *testing.T) {
	candles := flatCandles(60, 1000)
	snap := indicator.Compute(candles)
	if sig := (&MomentumBreakout{}).Evaluate(candles, snap); sig != nil {
		t.Errorf("flat series produced signal: %+v", sig)
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	candles := risingCandles(60, 1000, 0.2)
	snap := indicator.Compute(candles)

	// Both momentum_breakout and supertrend_follow fire on this series;
	// list order decides the winner, not confidence.
	sig := Evaluate([]string{"supertrend_follow", "momentum_breakout"}, candles, snap)
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Strategy != "supertrend_follow" {
		t.Errorf("priority: got %q, want supertrend_follow first", sig.Strategy)
	}

	sig = Evaluate([]string{"momentum_breakout", "supertrend_follow"}, candles, snap)
	if sig == nil || sig.Strategy != "momentum_breakout" {
		t.Errorf("reversed priority: got %+v, want momentum_breakout", sig)
	}
}

func TestEvaluateSkipsUnknownIDs(t *testing.T) {
	candles := risingCandles(60, 1000, 0.2)
	snap := indicator.Compute(candles)
	sig := Evaluate([]string{"bogus", "momentum_breakout"}, candles, snap)
	if sig == nil || sig.Strategy != "momentum_breakout" {
		t.Errorf("unknown ID should be skipped: got %+v", sig)
	}
}

func TestEvaluateNilSnapshotReturnsNil(t *testing.T) {
	if sig := Evaluate([]string{"momentum_breakout"}, nil, nil); sig != nil {
		t.Errorf("nil snapshot: got %+v, want nil", sig)
	}
}

func TestScoreNilSnapshotIsNeutral(t *testing.T) {
	if got := Score(nil, nil); got != 50 {
		t.Errorf("Score(nil): got %v, want 50", got)
	}
}

func TestScoreClampedTo0And100(t *testing.T) {
	bull := indicator.Compute(risingCandles(250, 1000, 0.3))
	patterns := []pattern.Match{
		{Name: "Bullish Engulfing", Direction: model.Buy, Reliability: 5},
		{Name: "Morning Star", Direction: model.Buy, Reliability: 5},
		{Name: "Three White Soldiers", Direction: model.Buy, Reliability: 4},
	}
	if got := Score(bull, patterns); got < 0 || got > 100 {
		t.Errorf("score out of range: %v", got)
	}

	// mirror with bearish patterns on a falling series
	falling := make([]model.Candle, 250)
	price := 5000.0
	for i := range falling {
		open := price
		price *= 0.997
		falling[i] = model.Candle{
			Time: int64(1700000000 + i*300), Open: open,
			High: open * 1.001, Low: price * 0.999, Close: price, Volume: 10000,
		}
	}
	bear := indicator.Compute(falling)
	bearPatterns := []pattern.Match{
		{Name: "Bearish Engulfing", Direction: model.Sell, Reliability: 5},
		{Name: "Evening Star", Direction: model.Sell, Reliability: 5},
	}
	got := Score(bear, bearPatterns)
	if got < 0 || got > 100 {
		t.Errorf("score out of range: %v", got)
	}
	if got >= 50 {
		t.Errorf("bearish setup scored %v, want below 50", got)
	}
}

func TestScoreDirectionality(t *testing.T) {
	bull := Score(indicator.Compute(risingCandles(250, 1000, 0.2)), nil)
	if bull <= 50 {
		t.Errorf("bullish series score %v, want above 50", bull)
	}
}

func TestScoreSignalThresholds(t *testing.T) {
	if sig := ScoreSignal(70); sig == nil || sig.Direction != model.Buy {
		t.Errorf("score 70: got %+v, want BUY (threshold inclusive)", sig)
	}
	if sig := ScoreSignal(30); sig == nil || sig.Direction != model.Sell {
		t.Errorf("score 30: got %+v, want SELL (threshold inclusive)", sig)
	}
	if sig := ScoreSignal(50); sig != nil {
		t.Errorf("score 50: got %+v, want nil", sig)
	}
	if sig := ScoreSignal(69.9); sig != nil {
		t.Errorf("score 69.9: got %+v, want nil", sig)
	}
	if sig := ScoreSignal(75); sig.Confidence != FallbackConfidence {
		t.Errorf("fallback confidence: got %d, want %d", sig.Confidence, FallbackConfidence)
	}
	if sig := ScoreSignal(75); sig.Strategy != "" {
		t.Errorf("fallback signal should carry empty strategy tag, got %q", sig.Strategy)
	}
}
