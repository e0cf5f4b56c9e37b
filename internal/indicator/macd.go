package indicator

import "autotradev1/internal/model"

// MACD returns the fast/slow EMA difference, its signal line (an EMA of
// the trailing MACD line values) and the histogram (macd - signal).
func MACD(data []float64) model.MACDValue {
	if len(data) == 0 {
		return model.MACDValue{}
	}
	fast := emaSeries(data, MACDFastPeriod)
	slow := emaSeries(data, MACDSlowPeriod)
	line := make([]float64, len(data))
	for i := range data {
		line[i] = fast[i] - slow[i]
	}
	macd := last(line)
	signal := EMA(tail(line, MACDSignalPeriod), MACDSignalPeriod)
	return model.MACDValue{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}
