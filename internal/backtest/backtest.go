// Package backtest replays historical candles through the shared
// strategy catalog, one strategy and one position at a time, and
// produces an aggregate performance report. The per-bar decision logic
// mirrors the live engine; the simulation itself is single-threaded
// and fully deterministic.
package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"autotradev1/internal/indicator"
	"autotradev1/internal/model"
	"autotradev1/internal/pattern"
	"autotradev1/internal/strategy"
)

// warmupBars is the first bar index eligible for a signal; earlier bars
// only seed indicator history.
const warmupBars = 50

// windowBars caps the trailing slice handed to the indicator engine.
const windowBars = 200

// minCandles is the input-validation floor.
const minCandles = 100

// Config holds the simulation inputs. All fields are read-only.
type Config struct {
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`

	InitialCapital  float64 `json:"initial_capital"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct"`
	StopLossPercent float64 `json:"stop_loss_percent"`
	Target1Percent  float64 `json:"target1_percent"`
	TrailingSL      bool    `json:"trailing_sl"`
	TrailingPercent float64 `json:"trailing_percent"`
}

// Trade is one simulated round-trip.
type Trade struct {
	EntryDate  string          `json:"entry_date"`
	ExitDate   string          `json:"exit_date"`
	Symbol     string          `json:"symbol"`
	Direction  model.Direction `json:"direction"`
	EntryPrice float64         `json:"entry_price"`
	ExitPrice  float64         `json:"exit_price"`
	Qty        int64           `json:"qty"`
	PnL        float64         `json:"pnl"`
	PnLPercent float64         `json:"pnl_percent"`
	ExitReason string          `json:"exit_reason"`
	Strategy   string          `json:"strategy"`

	// indicator readings captured at entry
	EntryRSI   float64 `json:"entry_rsi"`
	EntryMACD  float64 `json:"entry_macd"`
	EntryScore float64 `json:"entry_score"`
}

// EquityPoint is one step of the capital trajectory.
type EquityPoint struct {
	Date    string  `json:"date"`
	Capital float64 `json:"capital"`
}

// DrawdownPoint is one step of the drawdown curve (negative percent).
type DrawdownPoint struct {
	Date     string  `json:"date"`
	Drawdown float64 `json:"drawdown"`
}

// MonthlyReturn buckets realized P&L by the trade's entry month.
type MonthlyReturn struct {
	Month   string  `json:"month"` // YYYY-MM
	PnL     float64 `json:"pnl"`
	Trades  int     `json:"trades"`
	WinRate float64 `json:"win_rate"`
}

// Result is the aggregate backtest report. Serializable to flat JSON.
type Result struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	NetPnL        float64 `json:"net_pnl"`
	NetPnLPercent float64 `json:"net_pnl_percent"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"`
	ProfitFactor  float64 `json:"profit_factor"`
	Expectancy    float64 `json:"expectancy"`

	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	LargestWin  float64 `json:"largest_win"`
	LargestLoss float64 `json:"largest_loss"`

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	CalmarRatio        float64 `json:"calmar_ratio"`
	RecoveryFactor     float64 `json:"recovery_factor"`

	StartingCapital float64 `json:"starting_capital"`
	EndingCapital   float64 `json:"ending_capital"`
	PeakCapital     float64 `json:"peak_capital"`

	Trades         []Trade         `json:"trades"`
	EquityCurve    []EquityPoint   `json:"equity_curve"`
	DrawdownCurve  []DrawdownPoint `json:"drawdown_curve"`
	MonthlyReturns []MonthlyReturn `json:"monthly_returns"`
	Verdict        []string        `json:"verdict"`
}

// profitFactorCap is reported when there are wins and zero losses;
// keeps the report JSON-safe where +Inf is not.
const profitFactorCap = 999

type openPosition struct {
	direction  model.Direction
	entryPrice float64
	entryTime  string
	stopLoss   float64
	qty        int64
	rsi        float64
	macd       float64
	score      float64
}

func dirSign(d model.Direction) float64 {
	if d == model.Buy {
		return 1
	}
	return -1
}

func barDate(c model.Candle) string {
	return time.Unix(c.Time, 0).UTC().Format(time.RFC3339)
}

// Run simulates cfg.Strategy over candles. Progress (0-100) is
// reported every 50 bars when onProgress is non-nil; the callback is
// advisory and never affects the result. Fewer than 100 candles is a
// hard error with no partial result.
func Run(cfg Config, candles []model.Candle, onProgress func(pct int)) (*Result, error) {
	if len(candles) < minCandles {
		return nil, fmt.Errorf("backtest: insufficient data: need %d+ candles, got %d", minCandles, len(candles))
	}
	if strategy.ByID(cfg.Strategy) == nil {
		return nil, fmt.Errorf("backtest: unknown strategy %q", cfg.Strategy)
	}

	capital := cfg.InitialCapital
	peak := capital
	maxDD := 0.0

	var trades []Trade
	equity := []EquityPoint{{Date: barDate(candles[0]), Capital: capital}}
	var drawdown []DrawdownPoint

	var pos *openPosition
	consecWins, consecLosses := 0, 0
	maxConsWins, maxConsLosses := 0, 0

	closeTrade := func(price float64, when string, reason string) {
		sign := dirSign(pos.direction)
		pnl := sign * (price - pos.entryPrice) * float64(pos.qty)
		capital += pnl
		trades = append(trades, Trade{
			EntryDate:  pos.entryTime,
			ExitDate:   when,
			Symbol:     cfg.Symbol,
			Direction:  pos.direction,
			EntryPrice: pos.entryPrice,
			ExitPrice:  price,
			Qty:        pos.qty,
			PnL:        pnl,
			PnLPercent: sign * (price - pos.entryPrice) / pos.entryPrice * 100,
			ExitReason: reason,
			Strategy:   cfg.Strategy,
			EntryRSI:   pos.rsi,
			EntryMACD:  pos.macd,
			EntryScore: pos.score,
		})
		// Zero-P&L closes count as wins, matching live accounting.
		if pnl >= 0 {
			consecWins++
			consecLosses = 0
		} else {
			consecLosses++
			consecWins = 0
		}
		if consecWins > maxConsWins {
			maxConsWins = consecWins
		}
		if consecLosses > maxConsLosses {
			maxConsLosses = consecLosses
		}
		if capital > peak {
			peak = capital
		}
		dd := (peak - capital) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
		equity = append(equity, EquityPoint{Date: when, Capital: capital})
		drawdown = append(drawdown, DrawdownPoint{Date: when, Drawdown: -dd})
		pos = nil
	}

	for i := warmupBars; i < len(candles); i++ {
		if onProgress != nil && i%50 == 0 {
			onProgress(int(math.Round(float64(i) / float64(len(candles)) * 100)))
		}

		lo := i - windowBars
		if lo < 0 {
			lo = 0
		}
		window := candles[lo : i+1]
		current := candles[i]

		if pos != nil {
			price := current.Close
			sign := dirSign(pos.direction)
			pnlPct := sign * (price - pos.entryPrice) / pos.entryPrice * 100

			// Stop-loss before target; the exit price is the bar close.
			exitReason := ""
			if sign*(pos.stopLoss-price) >= 0 {
				exitReason = model.ExitStopLoss
			} else if pnlPct >= cfg.Target1Percent {
				exitReason = model.ExitTarget1
			}

			if cfg.TrailingSL && pnlPct > cfg.TrailingPercent {
				newSL := price * (1 - sign*cfg.TrailingPercent/100)
				if (pos.direction == model.Buy && newSL > pos.stopLoss) ||
					(pos.direction == model.Sell && newSL < pos.stopLoss) {
					pos.stopLoss = newSL
				}
			}

			if exitReason != "" {
				closeTrade(price, barDate(current), exitReason)
			}
			continue
		}

		snap := indicator.Compute(window)
		if snap == nil {
			continue
		}
		sig := strategy.Evaluate([]string{cfg.Strategy}, window, snap)
		if sig == nil || capital <= 0 {
			continue
		}

		price := current.Close
		sign := dirSign(sig.Direction)
		sl := price * (1 - sign*cfg.StopLossPercent/100)
		riskPerShare := math.Abs(price - sl)
		qty := int64(1)
		if riskPerShare > 0 {
			budget := capital * cfg.RiskPerTradePct / 100
			if q := int64(math.Floor(budget / riskPerShare)); q > 1 {
				qty = q
			}
		}
		pos = &openPosition{
			direction:  sig.Direction,
			entryPrice: price,
			entryTime:  barDate(current),
			stopLoss:   sl,
			qty:        qty,
			rsi:        snap.RSI14,
			macd:       snap.MACD.Histogram,
			score:      strategy.Score(snap, pattern.Detect(window)),
		}
	}

	if pos != nil {
		last := candles[len(candles)-1]
		closeTrade(last.Close, barDate(last), model.ExitEndOfData)
	}

	return buildResult(cfg, capital, peak, maxDD, maxConsWins, maxConsLosses,
		trades, equity, drawdown), nil
}

func buildResult(cfg Config, capital, peak, maxDD float64, maxConsWins, maxConsLosses int,
	trades []Trade, equity []EquityPoint, drawdown []DrawdownPoint) *Result {

	grossProfit, grossLoss := 0.0, 0.0
	wins, losses := 0, 0
	largestWin, largestLoss := 0.0, 0.0
	for _, t := range trades {
		if t.PnL >= 0 {
			wins++
			grossProfit += t.PnL
			if t.PnL > largestWin {
				largestWin = t.PnL
			}
		} else {
			losses++
			grossLoss += -t.PnL
			if t.PnL < largestLoss {
				largestLoss = t.PnL
			}
		}
	}

	netPnL := capital - cfg.InitialCapital
	netPnLPct := netPnL / cfg.InitialCapital * 100

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades)) * 100
	}
	profitFactor := 0.0
	switch {
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		profitFactor = profitFactorCap
	}

	r := &Result{
		TotalTrades:          len(trades),
		WinningTrades:        wins,
		LosingTrades:         losses,
		WinRate:              winRate,
		NetPnL:               netPnL,
		NetPnLPercent:        netPnLPct,
		GrossProfit:          grossProfit,
		GrossLoss:            grossLoss,
		ProfitFactor:         profitFactor,
		LargestWin:           largestWin,
		LargestLoss:          largestLoss,
		MaxConsecutiveWins:   maxConsWins,
		MaxConsecutiveLosses: maxConsLosses,
		MaxDrawdownPercent:   maxDD,
		StartingCapital:      cfg.InitialCapital,
		EndingCapital:        capital,
		PeakCapital:          peak,
		Trades:               trades,
		EquityCurve:          equity,
		DrawdownCurve:        drawdown,
		MonthlyReturns:       monthlyReturns(trades),
		Verdict:              verdict(netPnL, winRate, profitFactor, maxDD),
	}
	if len(trades) > 0 {
		r.Expectancy = netPnL / float64(len(trades))
	}
	if wins > 0 {
		r.AvgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		r.AvgLoss = grossLoss / float64(losses)
	}

	// Return-over-drawdown ratios. The Sharpe figure is the original
	// product's drawdown-scaled heuristic, kept for behavioral parity
	// with historical reports; it is not an annualized Sharpe.
	if len(trades) > 5 {
		dd := maxDD
		if dd == 0 {
			dd = 1
		}
		r.SharpeRatio = netPnLPct / dd * 0.5
	}
	if maxDD > 0 {
		r.CalmarRatio = netPnLPct / maxDD
		r.RecoveryFactor = netPnL / (cfg.InitialCapital * maxDD / 100)
	}
	return r
}

func monthlyReturns(trades []Trade) []MonthlyReturn {
	type bucket struct {
		pnl    float64
		trades int
		wins   int
	}
	byMonth := map[string]*bucket{}
	for _, t := range trades {
		m := t.EntryDate
		if len(m) >= 7 {
			m = m[:7]
		}
		b := byMonth[m]
		if b == nil {
			b = &bucket{}
			byMonth[m] = b
		}
		b.pnl += t.PnL
		b.trades++
		if t.PnL >= 0 {
			b.wins++
		}
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make([]MonthlyReturn, 0, len(months))
	for _, m := range months {
		b := byMonth[m]
		wr := 0.0
		if b.trades > 0 {
			wr = float64(b.wins) / float64(b.trades) * 100
		}
		out = append(out, MonthlyReturn{Month: m, PnL: b.pnl, Trades: b.trades, WinRate: wr})
	}
	return out
}

// verdict maps independent fixed thresholds to human-readable lines.
func verdict(netPnL, winRate, profitFactor, maxDD float64) []string {
	var v []string
	if netPnL > 0 {
		v = append(v, "✅ Profitable strategy")
	} else {
		v = append(v, "❌ Strategy not profitable in this period")
	}
	switch {
	case winRate >= 60:
		v = append(v, "✅ Win rate above 60%")
	case winRate >= 50:
		v = append(v, fmt.Sprintf("⚠️ Win rate moderate at %.0f%%", winRate))
	default:
		v = append(v, "❌ Win rate below 50%")
	}
	switch {
	case profitFactor >= 2:
		v = append(v, "✅ Profit factor above 2")
	case profitFactor >= 1.5:
		v = append(v, "⚠️ Profit factor moderate")
	default:
		v = append(v, "❌ Profit factor below 1.5")
	}
	switch {
	case maxDD < 10:
		v = append(v, "✅ Max drawdown under 10%")
	case maxDD < 20:
		v = append(v, fmt.Sprintf("⚠️ Max drawdown %.1f%% — moderate", maxDD))
	default:
		v = append(v, fmt.Sprintf("❌ Max drawdown %.1f%% — high risk", maxDD))
	}
	if netPnL > 0 && profitFactor >= 1.5 && winRate >= 50 {
		v = append(v, "✅ Good candidate for live trading")
	} else {
		v = append(v, "⚠️ Consider optimizing before live trading")
	}
	return v
}
