package indicator

import (
	"math"
	"testing"

	"autotradev1/internal/model"
)

// makeCandles builds a synthetic history with a constant per-bar price
// step and constant volume.
func makeCandles(n int, start, step float64) []model.Candle {
	candles := make([]model.Candle, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		price += step
		high := math.Max(open, price) + 0.5
		low := math.Min(open, price) - 0.5
		candles[i] = model.Candle{
			Time:   int64(1700000000 + i*300),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 10000,
		}
	}
	return candles
}

func TestSMAShortHistoryFallsBackToLastValue(t *testing.T) {
	got := SMA([]float64{100, 101, 102}, 20)
	if got != 102 {
		t.Errorf("SMA fallback: got %v, want 102", got)
	}
}

func TestSMAExactWindow(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	got := SMA(data, 5)
	if got != 3 {
		t.Errorf("SMA: got %v, want 3", got)
	}
	// trailing window only
	got = SMA(data, 2)
	if got != 4.5 {
		t.Errorf("SMA trailing: got %v, want 4.5", got)
	}
}

func TestEMAShortHistoryFallsBackToLastValue(t *testing.T) {
	got := EMA([]float64{50, 60}, 9)
	if got != 60 {
		t.Errorf("EMA fallback: got %v, want 60", got)
	}
}

func TestEMAConstantSeriesIsFlat(t *testing.T) {
	data := make([]float64, 50)
	for i := range data {
		data[i] = 250
	}
	got := EMA(data, 9)
	if math.Abs(got-250) > 1e-9 {
		t.Errorf("EMA of constant series: got %v, want 250", got)
	}
}

func TestRSIShortHistoryFallsBackToMidpoint(t *testing.T) {
	got := RSI([]float64{100, 101, 102}, 14)
	if got != 50 {
		t.Errorf("RSI fallback: got %v, want 50", got)
	}
}

func TestRSISaturatesAt100OnZeroLosses(t *testing.T) {
	data := make([]float64, 30)
	for i := range data {
		data[i] = 100 + float64(i)
	}
	got := RSI(data, 14)
	if got != 100 {
		t.Errorf("RSI all-gains: got %v, want exactly 100", got)
	}
}

func TestRSIBounds(t *testing.T) {
	data := []float64{100, 98, 103, 97, 105, 99, 102, 96, 104, 98, 101, 97, 103, 99, 100, 102}
	got := RSI(data, 14)
	if got < 0 || got > 100 {
		t.Errorf("RSI out of bounds: %v", got)
	}
}

func TestBollingerCoincidentBandsPercentB(t *testing.T) {
	data := make([]float64, 30)
	for i := range data {
		data[i] = 500
	}
	bb := Bollinger(data, 20, 2)
	if bb.PercentB != 0.5 {
		t.Errorf("PercentB on flat series: got %v, want 0.5", bb.PercentB)
	}
	if bb.Width != 0 {
		t.Errorf("Width on flat series: got %v, want 0", bb.Width)
	}
}

func TestATRShortHistoryIsZero(t *testing.T) {
	h := []float64{101, 102}
	l := []float64{99, 100}
	c := []float64{100, 101}
	if got := ATR(h, l, c, 14); got != 0 {
		t.Errorf("ATR fallback: got %v, want 0", got)
	}
}

func TestADXShortHistoryFallsBackToMidpoint(t *testing.T) {
	h := []float64{101, 102, 103}
	l := []float64{99, 100, 101}
	if got := ADX(h, l, 14); got != 25 {
		t.Errorf("ADX fallback: got %v, want 25", got)
	}
}

func TestWilliamsRZeroRangeFallsBackToMidpoint(t *testing.T) {
	h := []float64{100, 100, 100}
	l := []float64{100, 100, 100}
	c := []float64{100, 100, 100}
	if got := WilliamsR(h, l, c, 14); got != -50 {
		t.Errorf("WilliamsR zero range: got %v, want -50", got)
	}
}

func TestVolumeRatioZeroAverageIsNeutral(t *testing.T) {
	if got := VolumeRatio([]float64{0, 0, 0}, 20); got != 1 {
		t.Errorf("VolumeRatio zero avg: got %v, want 1", got)
	}
}

func TestVWAPZeroVolumeFallsBackToLastClose(t *testing.T) {
	h := []float64{101, 103}
	l := []float64{99, 100}
	c := []float64{100, 102}
	v := []float64{0, 0}
	if got := VWAP(h, l, c, v); got != 102 {
		t.Errorf("VWAP zero volume: got %v, want 102", got)
	}
}

func TestComputeEmptyHistoryReturnsNil(t *testing.T) {
	if snap := Compute(nil); snap != nil {
		t.Errorf("Compute(nil): got %+v, want nil", snap)
	}
}

// Compute on a single candle must degrade to fallbacks, never NaN/Inf.
func TestComputeSingleCandleAllFinite(t *testing.T) {
	snap := Compute(makeCandles(1, 100, 1))
	if snap == nil {
		t.Fatal("Compute returned nil for non-empty history")
	}
	fields := map[string]float64{
		"SMA20":       snap.SMA20,
		"SMA200":      snap.SMA200,
		"EMA9":        snap.EMA9,
		"RSI14":       snap.RSI14,
		"MACD":        snap.MACD.MACD,
		"Signal":      snap.MACD.Signal,
		"Histogram":   snap.MACD.Histogram,
		"BBUpper":     snap.Bollinger.Upper,
		"PercentB":    snap.Bollinger.PercentB,
		"StochK":      snap.Stochastic.K,
		"ADX":         snap.ADX,
		"ATR":         snap.ATR,
		"VWAP":        snap.VWAP,
		"OBV":         snap.OBV,
		"WilliamsR":   snap.WilliamsR,
		"CCI":         snap.CCI,
		"VolumeRatio": snap.VolumeRatio,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is not finite: %v", name, v)
		}
	}
	if snap.RSI14 != 50 {
		t.Errorf("RSI14 fallback: got %v, want 50", snap.RSI14)
	}
	if snap.ADX != 25 {
		t.Errorf("ADX fallback: got %v, want 25", snap.ADX)
	}
	if snap.ATR != 0 {
		t.Errorf("ATR fallback: got %v, want 0", snap.ATR)
	}
}

func TestComputeLongHistoryAllFinite(t *testing.T) {
	snap := Compute(makeCandles(250, 1000, 0.7))
	if snap == nil {
		t.Fatal("Compute returned nil")
	}
	if snap.CurrentPrice <= 1000 {
		t.Errorf("CurrentPrice: got %v, want above start", snap.CurrentPrice)
	}
	// rising series: short averages lead long ones
	if snap.EMA9 <= snap.EMA21 {
		t.Errorf("rising series: EMA9 %v should exceed EMA21 %v", snap.EMA9, snap.EMA21)
	}
	if snap.SMA20 <= snap.SMA50 {
		t.Errorf("rising series: SMA20 %v should exceed SMA50 %v", snap.SMA20, snap.SMA50)
	}
	if snap.Supertrend.Trend != model.TrendBullish {
		t.Errorf("rising series: Supertrend %v, want BULLISH", snap.Supertrend.Trend)
	}
}

func TestMACDHistogramSignOnTrend(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = 100 * math.Pow(1.002, float64(i))
	}
	m := MACD(data)
	if m.MACD <= 0 {
		t.Errorf("MACD on accelerating uptrend: got %v, want > 0", m.MACD)
	}
	if m.Histogram == 0 {
		t.Error("Histogram is exactly zero; signal line not tracking MACD series")
	}
}
