package indicator

import (
	"math"

	"autotradev1/internal/model"
)

// ATR returns the average true range over the trailing window.
// Histories shorter than period+1 yield 0.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(highs) - period; i < len(highs); i++ {
		tr := highs[i] - lows[i]
		if d := math.Abs(highs[i] - closes[i-1]); d > tr {
			tr = d
		}
		if d := math.Abs(lows[i] - closes[i-1]); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(period)
}

// ADX returns a directional-movement strength estimate over the trailing
// window. Histories shorter than 2·period fall back to the 25 midpoint.
func ADX(highs, lows []float64, period int) float64 {
	if len(highs) < period*2 {
		return 25
	}
	sumDX := 0.0
	for i := len(highs) - period; i < len(highs); i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		pDM, mDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			pDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			mDM = downMove
		}
		if pDM+mDM > 0 {
			dx := (pDM - mDM) / (pDM + mDM) * 100
			if dx < 0 {
				dx = -dx
			}
			sumDX += dx
		}
	}
	return sumDX / float64(period)
}

// Supertrend classifies the trend from an ATR band around the latest
// high/low midpoint: BULLISH when the close exceeds the lower band,
// BEARISH otherwise. Value is the active band.
func Supertrend(highs, lows, closes []float64, period int, mult float64) model.SupertrendValue {
	if len(closes) == 0 {
		return model.SupertrendValue{Trend: model.TrendBearish}
	}
	atr := ATR(highs, lows, closes, period)
	c := last(closes)
	hl2 := (last(highs) + last(lows)) / 2
	upper := hl2 + mult*atr
	lower := hl2 - mult*atr
	if c > lower {
		return model.SupertrendValue{Value: lower, Trend: model.TrendBullish}
	}
	return model.SupertrendValue{Value: upper, Trend: model.TrendBearish}
}
