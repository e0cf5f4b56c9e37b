package strategy

import (
	"fmt"

	"autotradev1/internal/model"
	"autotradev1/internal/pattern"
)

// Score thresholds for the fallback signal translation. Empirical values
// carried over from the original tuning; configurable, not re-derived.
const (
	ScoreBuyThreshold  = 70.0
	ScoreSellThreshold = 30.0

	// FallbackConfidence is attached to threshold-crossing score signals.
	FallbackConfidence = 65
)

// Score blends the indicator snapshot and detected patterns into a single
// 0-100 bullishness score. It starts at the 50 midpoint and applies fixed
// additive adjustments per condition; equal comparisons are neutral.
func Score(snap *model.IndicatorSnapshot, patterns []pattern.Match) float64 {
	if snap == nil {
		return 50
	}
	score := 50.0

	cmp := func(a, b, weight float64) {
		switch {
		case a > b:
			score += weight
		case a < b:
			score -= weight
		}
	}

	cmp(snap.CurrentPrice, snap.SMA20, 5)
	cmp(snap.CurrentPrice, snap.SMA50, 5)
	cmp(snap.CurrentPrice, snap.SMA200, 4)
	cmp(snap.EMA9, snap.EMA21, 6)
	cmp(snap.MACD.Histogram, 0, 6)

	if snap.Supertrend.Trend == model.TrendBullish {
		score += 8
	} else {
		score -= 8
	}

	switch {
	case snap.RSI14 > 70:
		score -= 5 // overbought
	case snap.RSI14 < 30:
		score += 5 // oversold bounce zone
	case snap.RSI14 > 50:
		score += 4
	case snap.RSI14 < 50:
		score -= 4
	}

	if snap.VolumeRatio > 1.5 {
		score += 4
	} else if snap.VolumeRatio < 0.7 {
		score -= 3
	}

	for _, p := range patterns {
		w := float64(p.Reliability) * 2
		if p.Direction == model.Buy {
			score += w
		} else {
			score -= w
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ScoreSignal translates a score into the fallback signal: BUY at or
// above the high threshold, SELL at or below the low threshold, else nil.
// Used only when no catalog strategy fires.
func ScoreSignal(score float64) *Signal {
	if score >= ScoreBuyThreshold {
		return &Signal{
			Direction:  model.Buy,
			Confidence: FallbackConfidence,
			Reason:     fmt.Sprintf("composite score %.0f above %.0f", score, ScoreBuyThreshold),
		}
	}
	if score <= ScoreSellThreshold {
		return &Signal{
			Direction:  model.Sell,
			Confidence: FallbackConfidence,
			Reason:     fmt.Sprintf("composite score %.0f below %.0f", score, ScoreSellThreshold),
		}
	}
	return nil
}
