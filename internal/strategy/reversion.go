package strategy

import (
	"fmt"

	"autotradev1/internal/model"
)

// MeanReversion fades oversold/overbought extremes confirmed by the
// close's position in the Bollinger bands.
type MeanReversion struct{}

func (s *MeanReversion) ID() string      { return "mean_reversion" }
func (s *MeanReversion) Name() string    { return "Mean Reversion" }
func (s *MeanReversion) Confidence() int { return 72 }

func (s *MeanReversion) Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	if snap.RSI14 < 30 && snap.Bollinger.PercentB < 0.1 {
		return signal(s, model.Buy,
			fmt.Sprintf("oversold: RSI %.0f, %%B %.2f", snap.RSI14, snap.Bollinger.PercentB))
	}
	if snap.RSI14 > 70 && snap.Bollinger.PercentB > 0.9 {
		return signal(s, model.Sell,
			fmt.Sprintf("overbought: RSI %.0f, %%B %.2f", snap.RSI14, snap.Bollinger.PercentB))
	}
	return nil
}

// VWAPBounce buys a reclaim of the session VWAP on a bullish candle with
// above-average volume.
type VWAPBounce struct{}

func (s *VWAPBounce) ID() string      { return "vwap_bounce" }
func (s *VWAPBounce) Name() string    { return "VWAP Bounce" }
func (s *VWAPBounce) Confidence() int { return 70 }

func (s *VWAPBounce) Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	if len(candles) < 2 {
		return nil
	}
	prev := candles[len(candles)-2]
	cur := candles[len(candles)-1]
	if prev.Close < snap.VWAP && cur.Close > snap.VWAP && cur.Bullish() && snap.VolumeRatio > 1 {
		return signal(s, model.Buy, fmt.Sprintf("VWAP reclaim at %.2f", snap.VWAP))
	}
	return nil
}
