package strategy

import (
	"fmt"

	"autotradev1/internal/model"
)

// MomentumBreakout buys when price clears the prior 20-bar high with at
// least average participation and the RSI confirming momentum. Extrema
// exclude the current bar so the breakout is against established range.
type MomentumBreakout struct{}

func (s *MomentumBreakout) ID() string      { return "momentum_breakout" }
func (s *MomentumBreakout) Name() string    { return "Momentum Breakout" }
func (s *MomentumBreakout) Confidence() int { return 78 }

func (s *MomentumBreakout) Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	if len(candles) < 2 {
		return nil
	}
	high20 := highestHigh(candles, 20)
	if snap.CurrentPrice > high20 && snap.VolumeRatio >= 1.0 && snap.RSI14 >= 40 {
		return signal(s, model.Buy,
			fmt.Sprintf("20-bar breakout above %.2f (vol %.1fx, RSI %.0f)", high20, snap.VolumeRatio, snap.RSI14))
	}
	return nil
}

// BollingerSqueeze buys a volatility expansion: bands tighter than 2%% of
// the mean with price already poking through the upper band.
type BollingerSqueeze struct{}

func (s *BollingerSqueeze) ID() string      { return "bollinger_squeeze" }
func (s *BollingerSqueeze) Name() string    { return "Bollinger Squeeze" }
func (s *BollingerSqueeze) Confidence() int { return 68 }

func (s *BollingerSqueeze) Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	bb := snap.Bollinger
	if bb.Width < 2 && snap.CurrentPrice > bb.Upper {
		return signal(s, model.Buy,
			fmt.Sprintf("squeeze breakout: width %.2f%%, price above upper band %.2f", bb.Width, bb.Upper))
	}
	return nil
}

// OpeningRangeBreakout trades a break of the range set by the first three
// bars of the supplied session history, in either direction, with volume
// confirmation.
type OpeningRangeBreakout struct{}

func (s *OpeningRangeBreakout) ID() string      { return "orb" }
func (s *OpeningRangeBreakout) Name() string    { return "Opening Range Breakout" }
func (s *OpeningRangeBreakout) Confidence() int { return 75 }

func (s *OpeningRangeBreakout) Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	if len(candles) < 4 {
		return nil
	}
	orbHigh := candles[0].High
	orbLow := candles[0].Low
	for _, c := range candles[1:3] {
		if c.High > orbHigh {
			orbHigh = c.High
		}
		if c.Low < orbLow {
			orbLow = c.Low
		}
	}
	if snap.CurrentPrice > orbHigh && snap.VolumeRatio > 1.2 {
		return signal(s, model.Buy, fmt.Sprintf("break above opening range high %.2f", orbHigh))
	}
	if snap.CurrentPrice < orbLow && snap.VolumeRatio > 1.2 {
		return signal(s, model.Sell, fmt.Sprintf("break below opening range low %.2f", orbLow))
	}
	return nil
}
