package indicator

// SMA returns the simple moving average of the trailing period values.
// Shorter histories fall back to the last value.
func SMA(data []float64, period int) float64 {
	if len(data) < period {
		return last(data)
	}
	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average with smoothing 2/(period+1),
// seeded by the simple average of the first period values.
// Shorter histories fall back to the last value.
func EMA(data []float64, period int) float64 {
	if len(data) < period {
		return last(data)
	}
	k := 2.0 / float64(period+1)
	ema := SMA(data[:period], period)
	for i := period; i < len(data); i++ {
		ema = data[i]*k + ema*(1-k)
	}
	return ema
}

// emaSeries computes the running EMA value at every index, applying the
// same short-history fallback the scalar EMA uses before the seed bar.
func emaSeries(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	sum := 0.0
	for i, v := range data {
		if i < period {
			sum += v
			if i == period-1 {
				out[i] = sum / float64(period)
			} else {
				out[i] = v
			}
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}
