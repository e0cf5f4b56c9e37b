// Package indicator provides technical indicator calculations over candle data.
//
// Every function is a pure computation over an ordered candle history and
// never errors: when the history is shorter than an indicator's period the
// result degrades to a defined neutral value (last close for averages, 50
// for the RSI midpoint, 0 for range measures). This keeps strategy
// evaluation running on thinly-populated symbols.
package indicator

import "autotradev1/internal/model"

// Default periods for the indicator battery.
const (
	RSIPeriod        = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	BollingerPeriod  = 20
	BollingerMult    = 2.0
	StochasticPeriod = 14
	ATRPeriod        = 14
	ADXPeriod        = 14
	SupertrendPeriod = 10
	SupertrendMult   = 3.0
	WilliamsPeriod   = 14
	CCIPeriod        = 20
	VolumePeriod     = 20
)

// Closes extracts the close series from a candle history.
func Closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

// Highs extracts the high series from a candle history.
func Highs(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].High
	}
	return out
}

// Lows extracts the low series from a candle history.
func Lows(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Low
	}
	return out
}

// Volumes extracts the volume series from a candle history.
func Volumes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = float64(candles[i].Volume)
	}
	return out
}

func last(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return data[len(data)-1]
}

func tail(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}

func maxOf(data []float64) float64 {
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(data []float64) float64 {
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
