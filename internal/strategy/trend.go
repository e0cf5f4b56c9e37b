package strategy

import (
	"fmt"

	"autotradev1/internal/model"
)

// EMACrossover trades the 9/21 EMA relationship confirmed by MACD
// histogram sign and trend strength (ADX above 20).
type EMACrossover struct{}

func (s *EMACrossover) ID() string      { return "ema_crossover" }
func (s *EMACrossover) Name() string    { return "EMA Crossover" }
func (s *EMACrossover) Confidence() int { return 74 }

func (s *EMACrossover) Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	if snap.ADX <= 20 {
		return nil
	}
	if snap.EMA9 > snap.EMA21 && snap.MACD.Histogram > 0 {
		return signal(s, model.Buy,
			fmt.Sprintf("EMA9 %.2f above EMA21 %.2f with rising MACD", snap.EMA9, snap.EMA21))
	}
	if snap.EMA9 < snap.EMA21 && snap.MACD.Histogram < 0 {
		return signal(s, model.Sell,
			fmt.Sprintf("EMA9 %.2f below EMA21 %.2f with falling MACD", snap.EMA9, snap.EMA21))
	}
	return nil
}

// SupertrendFollow follows the Supertrend classifier when RSI and MACD
// agree with its direction.
type SupertrendFollow struct{}

func (s *SupertrendFollow) ID() string      { return "supertrend_follow" }
func (s *SupertrendFollow) Name() string    { return "Supertrend Follow" }
func (s *SupertrendFollow) Confidence() int { return 76 }

func (s *SupertrendFollow) Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	st := snap.Supertrend
	if st.Trend == model.TrendBullish && snap.RSI14 > 50 && snap.MACD.Histogram > 0 {
		return signal(s, model.Buy, fmt.Sprintf("Supertrend bullish at %.2f", st.Value))
	}
	if st.Trend == model.TrendBearish && snap.RSI14 < 50 && snap.MACD.Histogram < 0 {
		return signal(s, model.Sell, fmt.Sprintf("Supertrend bearish at %.2f", st.Value))
	}
	return nil
}
