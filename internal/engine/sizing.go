package engine

import (
	"math"

	"autotradev1/internal/model"
)

// positionSize is the output of risk-based sizing for one candidate
// entry.
type positionSize struct {
	Entry    float64
	Qty      int64
	StopLoss float64
	Target1  float64
	Target2  float64
}

func (p positionSize) Deployed() float64 { return p.Entry * float64(p.Qty) }

// sizePosition derives stop, targets and quantity from the configured
// risk budget. The stop distance is either a fixed percent of entry or
// an ATR multiple; quantity risks RiskPerTradePct of capital against
// that distance, floored at one share. Returns ok=false when the
// reward to the first target does not cover the risk 1:1.
func (e *Engine) sizePosition(entry, atr float64, dir model.Direction) (positionSize, bool) {
	sign := 1.0
	if dir == model.Sell {
		sign = -1
	}

	stopDist := entry * e.params.StopLossPercent / 100
	if e.params.UseATRStop && atr > 0 {
		stopDist = atr * e.params.ATRMultiplier
	}
	if stopDist <= 0 {
		return positionSize{}, false
	}

	target1Dist := entry * e.params.Target1Percent / 100
	if target1Dist < stopDist {
		return positionSize{}, false
	}

	riskBudget := e.params.Capital * e.params.RiskPerTradePct / 100
	qty := int64(math.Floor(riskBudget / stopDist))
	if qty < 1 {
		qty = 1
	}

	return positionSize{
		Entry:    entry,
		Qty:      qty,
		StopLoss: entry - sign*stopDist,
		Target1:  entry + sign*target1Dist,
		Target2:  entry + sign*entry*e.params.Target2Percent/100,
	}, true
}
