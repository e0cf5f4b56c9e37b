// cmd/backtest replays historical candles through the strategy catalog
// and prints a performance report. Candles come from a CSV file, the
// SQLite candle archive, or (by default) the deterministic simulator.
//
// Usage:
//
//	go run ./cmd/backtest --strategy=momentum_breakout --csv=data/reliance.csv
//	go run ./cmd/backtest --db=data/candles.db --symbol=NSE:RELIANCE:2885 --tf=FIVE_MINUTE
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"autotradev1/internal/backtest"
	"autotradev1/internal/marketdata/sim"
	"autotradev1/internal/model"
	sqlitestore "autotradev1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	strategyID := flag.String("strategy", "momentum_breakout", "Strategy ID to replay")
	capital := flag.Float64("capital", 100000, "Starting capital in rupees")
	risk := flag.Float64("risk", 1.0, "Risk per trade, percent of capital")
	slPct := flag.Float64("sl", 1.5, "Stop-loss percent")
	t1Pct := flag.Float64("target", 2.0, "Target percent")
	trailing := flag.Bool("trailing", true, "Enable trailing stop-loss")
	trailPct := flag.Float64("trail", 1.0, "Trailing distance percent")

	csvPath := flag.String("csv", "", "Candle CSV file (time,open,high,low,close,volume)")
	dbPath := flag.String("db", "", "SQLite candle archive (alternative to --csv)")
	symbol := flag.String("symbol", "NSE:RELIANCE:2885", "Instrument as EXCHANGE:SYMBOL:TOKEN")
	timeframe := flag.String("tf", "FIVE_MINUTE", "Timeframe stored in the archive")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start from (0=all)")
	toTS := flag.Int64("to", 0, "Unix timestamp to stop at (0=all)")

	simBars := flag.Int("sim-bars", 500, "Simulated bars when no --csv/--db given")
	simSeed := flag.Int64("sim-seed", 42, "Simulator seed")

	jsonOut := flag.String("json", "", "Write the full result JSON to this path")
	flag.Parse()

	inst := model.ParseInstrument(*symbol)
	if inst.Symbol == "" {
		log.Fatalf("[backtest] invalid --symbol %q", *symbol)
	}

	// Load candles
	var (
		candles []model.Candle
		source  string
		err     error
	)
	switch {
	case *csvPath != "":
		candles, err = backtest.LoadCSV(*csvPath)
		source = *csvPath
	case *dbPath != "":
		var store *sqlitestore.Store
		store, err = sqlitestore.New(*dbPath, nil)
		if err != nil {
			log.Fatalf("[backtest] sqlite open failed: %v", err)
		}
		defer store.Close()
		candles, err = store.LoadCandles(inst, *timeframe, *fromTS, *toTS)
		source = fmt.Sprintf("%s (%s %s)", *dbPath, inst.Key(), *timeframe)
	default:
		candles = sim.Generate(*simBars, 0, *simSeed, time.Now())
		source = fmt.Sprintf("simulator (seed=%d)", *simSeed)
	}
	if err != nil {
		log.Fatalf("[backtest] candle load failed: %v", err)
	}
	log.Printf("[backtest] %d candles from %s", len(candles), source)

	cfg := backtest.Config{
		Symbol:          inst.Symbol,
		Strategy:        *strategyID,
		InitialCapital:  *capital,
		RiskPerTradePct: *risk,
		StopLossPercent: *slPct,
		Target1Percent:  *t1Pct,
		TrailingSL:      *trailing,
		TrailingPercent: *trailPct,
	}

	result, err := backtest.Run(cfg, candles, func(pct int) {
		fmt.Printf("\r[backtest] progress: %d%%", pct)
	})
	fmt.Println()
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	printReport(cfg, result)

	if *jsonOut != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("[backtest] result marshal failed: %v", err)
		}
		if err := os.WriteFile(*jsonOut, data, 0o644); err != nil {
			log.Fatalf("[backtest] write %s failed: %v", *jsonOut, err)
		}
		log.Printf("[backtest] full report written to %s", *jsonOut)
	}
}

func printReport(cfg backtest.Config, r *backtest.Result) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║             BACKTEST COMPLETE                ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Printf("║  Strategy:        %-26s ║\n", cfg.Strategy)
	fmt.Printf("║  Trades:          %-26d ║\n", r.TotalTrades)
	fmt.Printf("║  Win rate:        %-25.1f%% ║\n", r.WinRate)
	fmt.Printf("║  Net PnL:         ₹%-24.2f ║\n", r.NetPnL)
	fmt.Printf("║  Net PnL %%:       %-25.2f%% ║\n", r.NetPnLPercent)
	fmt.Printf("║  Profit factor:   %-26.2f ║\n", r.ProfitFactor)
	fmt.Printf("║  Expectancy:      ₹%-24.2f ║\n", r.Expectancy)
	fmt.Printf("║  Max drawdown:    %-25.2f%% ║\n", r.MaxDrawdownPercent)
	fmt.Printf("║  Sharpe (approx): %-26.2f ║\n", r.SharpeRatio)
	fmt.Printf("║  Final capital:   ₹%-24.2f ║\n", r.EndingCapital)
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()
	for _, line := range r.Verdict {
		fmt.Println(line)
	}
}
