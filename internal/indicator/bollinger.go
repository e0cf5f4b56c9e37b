package indicator

import (
	"math"

	"autotradev1/internal/model"
)

// Bollinger returns the volatility bands: SMA ± mult·stddev over the
// trailing window. Width is the band spread as a percentage of the
// middle band; PercentB clamps to 0.5 when the bands coincide.
func Bollinger(data []float64, period int, mult float64) model.BollingerValue {
	if len(data) == 0 {
		return model.BollingerValue{PercentB: 0.5}
	}
	sma := SMA(data, period)
	variance := 0.0
	for _, v := range tail(data, period) {
		variance += (v - sma) * (v - sma)
	}
	std := math.Sqrt(variance / float64(period))
	upper := sma + mult*std
	lower := sma - mult*std

	width := 0.0
	if sma != 0 {
		width = (upper - lower) / sma * 100
	}
	percentB := 0.5
	if upper != lower {
		percentB = (last(data) - lower) / (upper - lower)
	}
	return model.BollingerValue{
		Upper:    upper,
		Middle:   sma,
		Lower:    lower,
		Width:    width,
		PercentB: percentB,
	}
}
