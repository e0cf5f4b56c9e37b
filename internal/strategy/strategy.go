// Package strategy provides the trading strategy catalog and evaluator.
//
// A Strategy is a pure predicate over (candle history, indicator snapshot)
// returning an optional directional signal. The evaluator iterates the
// caller-supplied ordered list of enabled strategies and returns the FIRST
// non-nil signal: priority is list order, not confidence ranking. Backtests
// depend on this first-match-wins contract.
package strategy

import "autotradev1/internal/model"

// Signal is a directional trading signal with a fixed confidence score.
// Strategy is empty when the signal came from the scoring-model fallback.
type Signal struct {
	Direction  model.Direction `json:"direction"`
	Confidence int             `json:"confidence"`
	Reason     string          `json:"reason"`
	Strategy   string          `json:"strategy"`
}

// Strategy is one named entry in the catalog. Confidence is a fixed
// per-strategy constant expressing qualitative conviction, not a
// calibrated probability.
type Strategy interface {
	// ID returns the catalog identifier (e.g. "momentum_breakout").
	ID() string

	// Name returns the human-readable strategy name.
	Name() string

	// Confidence returns the fixed confidence attached to signals.
	Confidence() int

	// Evaluate inspects the history and snapshot. Returns nil to skip.
	Evaluate(candles []model.Candle, snap *model.IndicatorSnapshot) *Signal
}

// Catalog holds every known strategy keyed by ID.
var Catalog = map[string]Strategy{}

func register(s Strategy) {
	Catalog[s.ID()] = s
}

func init() {
	register(&MomentumBreakout{})
	register(&MeanReversion{})
	register(&VWAPBounce{})
	register(&EMACrossover{})
	register(&SupertrendFollow{})
	register(&BollingerSqueeze{})
	register(&OpeningRangeBreakout{})
}

// ByID returns the catalog strategy for an ID, or nil if unknown.
func ByID(id string) Strategy {
	return Catalog[id]
}

// Evaluate runs the enabled strategies in the given order and returns
// the first non-nil signal. Unknown IDs are skipped. Returns nil when
// no enabled strategy fires.
func Evaluate(enabled []string, candles []model.Candle, snap *model.IndicatorSnapshot) *Signal {
	if snap == nil {
		return nil
	}
	for _, id := range enabled {
		s := Catalog[id]
		if s == nil {
			continue
		}
		if sig := s.Evaluate(candles, snap); sig != nil {
			return sig
		}
	}
	return nil
}

func signal(s Strategy, dir model.Direction, reason string) *Signal {
	return &Signal{
		Direction:  dir,
		Confidence: s.Confidence(),
		Reason:     reason,
		Strategy:   s.ID(),
	}
}

// highestHigh returns the maximum high over the last n candles of the
// slice, excluding the final (current) candle.
func highestHigh(candles []model.Candle, n int) float64 {
	prior := candles[:len(candles)-1]
	if len(prior) > n {
		prior = prior[len(prior)-n:]
	}
	h := prior[0].High
	for _, c := range prior[1:] {
		if c.High > h {
			h = c.High
		}
	}
	return h
}

// lowestLow mirrors highestHigh for lows.
func lowestLow(candles []model.Candle, n int) float64 {
	prior := candles[:len(candles)-1]
	if len(prior) > n {
		prior = prior[len(prior)-n:]
	}
	l := prior[0].Low
	for _, c := range prior[1:] {
		if c.Low < l {
			l = c.Low
		}
	}
	return l
}
