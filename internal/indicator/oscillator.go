package indicator

import "autotradev1/internal/model"

// RSI returns the relative strength index over the trailing window.
// Histories shorter than period+1 fall back to the 50 midpoint; a window
// with zero losses saturates at exactly 100.
func RSI(data []float64, period int) float64 {
	if len(data) < period+1 {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := len(data) - period; i < len(data); i++ {
		d := data[i] - data[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if losses == 0 {
		return 100
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs)
}

// Stochastic returns the %K/%D pair over the trailing window.
// A zero-range window yields the 50 midpoint.
func Stochastic(highs, lows, closes []float64, period int) model.StochasticValue {
	if len(closes) == 0 {
		return model.StochasticValue{K: 50, D: 50}
	}
	h := maxOf(tail(highs, period))
	l := minOf(tail(lows, period))
	c := last(closes)
	k := 50.0
	if h != l {
		k = (c - l) / (h - l) * 100
	}
	return model.StochasticValue{K: k, D: k}
}

// WilliamsR returns Williams %R over the trailing window (range -100..0).
// A zero-range window yields the -50 midpoint.
func WilliamsR(highs, lows, closes []float64, period int) float64 {
	if len(closes) == 0 {
		return -50
	}
	h := maxOf(tail(highs, period))
	l := minOf(tail(lows, period))
	if h == l {
		return -50
	}
	return (h - last(closes)) / (h - l) * -100
}

// CCI returns the commodity channel index over the trailing window.
// Zero mean deviation yields 0.
func CCI(highs, lows, closes []float64, period int) float64 {
	if len(closes) == 0 {
		return 0
	}
	tps := make([]float64, len(closes))
	for i := range closes {
		tps[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	sma := SMA(tps, period)
	md := 0.0
	for _, tp := range tail(tps, period) {
		if tp > sma {
			md += tp - sma
		} else {
			md += sma - tp
		}
	}
	md /= float64(period)
	if md <= 0 {
		return 0
	}
	return (last(tps) - sma) / (0.015 * md)
}
