package indicator

import "autotradev1/internal/model"

// Compute evaluates the full indicator battery over a candle history.
// Returns nil only when the history is empty; any non-empty history
// yields a snapshot with every field finite (fallback discipline).
func Compute(candles []model.Candle) *model.IndicatorSnapshot {
	if len(candles) == 0 {
		return nil
	}
	closes := Closes(candles)
	highs := Highs(candles)
	lows := Lows(candles)
	volumes := Volumes(candles)

	return &model.IndicatorSnapshot{
		SMA20:  SMA(closes, 20),
		SMA50:  SMA(closes, 50),
		SMA200: SMA(closes, 200),

		EMA9:  EMA(closes, 9),
		EMA21: EMA(closes, 21),
		EMA50: EMA(closes, 50),

		RSI14: RSI(closes, RSIPeriod),

		MACD:       MACD(closes),
		Bollinger:  Bollinger(closes, BollingerPeriod, BollingerMult),
		Stochastic: Stochastic(highs, lows, closes, StochasticPeriod),
		Supertrend: Supertrend(highs, lows, closes, SupertrendPeriod, SupertrendMult),

		ADX:       ADX(highs, lows, ADXPeriod),
		ATR:       ATR(highs, lows, closes, ATRPeriod),
		VWAP:      VWAP(highs, lows, closes, volumes),
		OBV:       OBV(closes, volumes),
		WilliamsR: WilliamsR(highs, lows, closes, WilliamsPeriod),
		CCI:       CCI(highs, lows, closes, CCIPeriod),

		CurrentPrice: closes[len(closes)-1],
		VolumeRatio:  VolumeRatio(volumes, VolumePeriod),
	}
}
