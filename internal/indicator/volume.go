package indicator

// VWAP returns the volume-weighted average price over the supplied
// history: cumulative typical-price × volume over cumulative volume.
// This is an approximation over the window, not a session-anchored VWAP.
// Zero cumulative volume falls back to the last close.
func VWAP(highs, lows, closes, volumes []float64) float64 {
	tpv, vol := 0.0, 0.0
	for i := range closes {
		tp := (highs[i] + lows[i] + closes[i]) / 3
		tpv += tp * volumes[i]
		vol += volumes[i]
	}
	if vol > 0 {
		return tpv / vol
	}
	return last(closes)
}

// OBV returns the cumulative on-balance volume over the history.
func OBV(closes, volumes []float64) float64 {
	obv := 0.0
	for i := 1; i < len(closes); i++ {
		if closes[i] > closes[i-1] {
			obv += volumes[i]
		} else if closes[i] < closes[i-1] {
			obv -= volumes[i]
		}
	}
	return obv
}

// VolumeRatio returns the latest volume over the trailing simple average
// volume. A zero average yields 1 (neutral), never a division by zero.
func VolumeRatio(volumes []float64, period int) float64 {
	avg := SMA(volumes, period)
	if avg > 0 {
		return last(volumes) / avg
	}
	return 1
}
