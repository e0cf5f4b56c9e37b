package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"autotradev1/internal/markethours"
	"autotradev1/internal/model"
	"autotradev1/internal/notification"
)

// tradingTime is a Tuesday mid-session (10:30 IST), not a holiday.
var tradingTime = time.Date(2026, time.January, 6, 10, 30, 0, 0, markethours.IST)

type fakeCandles struct {
	candles []model.Candle
	err     error
}

func (f *fakeCandles) GetCandles(_ context.Context, _ model.Instrument, _ string, _ int) ([]model.Candle, error) {
	return f.candles, f.err
}

type fakeTicks struct {
	price float64
	err   error
}

func (f *fakeTicks) LTP(_ context.Context, _ model.Instrument) (float64, error) {
	return f.price, f.err
}

type fakeBroker struct {
	orders int
	fail   bool
}

func (f *fakeBroker) PlaceOrder(_ context.Context, _ model.Instrument, _ model.Direction, _ int64) (string, error) {
	if f.fail {
		return "", context.DeadlineExceeded
	}
	f.orders++
	return "ORD-1", nil
}

func (f *fakeBroker) CancelOrder(_ context.Context, _ string) error { return nil }

// breakoutSeries climbs 0.2% per bar so the last close strictly clears
// the prior 20-bar high.
func breakoutSeries(n int) []model.Candle {
	candles := make([]model.Candle, n)
	price := 1000.0
	for i := 0; i < n; i++ {
		open := price
		price *= 1.002
		candles[i] = model.Candle{
			Time:   int64(1700000000 + i*300),
			Open:   open,
			High:   price * 1.001,
			Low:    open * 0.999,
			Close:  price,
			Volume: 10000,
		}
	}
	return candles
}

func testParams() Params {
	return Params{
		Paper:   true,
		Capital: 100000,

		Timeframe:   "FIVE_MINUTE",
		HistoryBars: 60,

		ScanInterval:    time.Hour,
		MonitorInterval: time.Hour,

		MinConfidence:    65,
		MaxOpenPositions: 3,
		MaxDailyLoss:     5000,
		MaxConsecLosses:  3,
		Cooldown:         15 * time.Minute,

		MaxDeployedPercent: 80,
		RiskPerTradePct:    1,

		StopLossPercent: 1.5,
		Target1Percent:  2,
		Target2Percent:  4,

		TrailingSL:       true,
		TrailingPercent:  1,
		TrailingActivate: 1,
		BreakevenSL:      true,
		BreakevenTrigger: 0.8,

		NoNewTradesAfterMin: 885, // 14:45
		SquareOffMin:        915, // 15:15

		Strategies: []string{"momentum_breakout"},
		Watchlist:  []model.Instrument{{Exchange: "NSE", Symbol: "RELIANCE", Token: "2885"}},
	}
}

func testEngine(p Params, candles *fakeCandles, ticks *fakeTicks, broker *fakeBroker) *Engine {
	e := New(p, Deps{
		Candles: candles,
		Ticks:   ticks,
		Broker:  broker,
		Now:     func() time.Time { return tradingTime },
	})
	e.status = StatusRunning
	return e
}

func scanLogContains(e *Engine, substr string) bool {
	for _, entry := range e.ScanLog() {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

func TestScanOpensTrade(t *testing.T) {
	broker := &fakeBroker{}
	e := testEngine(testParams(), &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, broker)

	e.ScanOnce(context.Background())

	trades := e.ActiveTrades()
	if len(trades) != 1 {
		t.Fatalf("active trades: got %d, want 1", len(trades))
	}
	tr := trades[0]
	if tr.Direction != model.Buy {
		t.Errorf("direction: got %v, want BUY", tr.Direction)
	}
	if tr.Qty < 1 {
		t.Errorf("qty: got %d, want >= 1", tr.Qty)
	}
	if !(tr.StopLoss < tr.EntryPrice && tr.EntryPrice < tr.Target1 && tr.Target1 < tr.Target2) {
		t.Errorf("level ordering broken: SL %v entry %v T1 %v T2 %v",
			tr.StopLoss, tr.EntryPrice, tr.Target1, tr.Target2)
	}
	if tr.Strategy != "momentum_breakout" {
		t.Errorf("strategy: got %q", tr.Strategy)
	}
	if broker.orders != 1 {
		t.Errorf("broker orders: got %d, want 1", broker.orders)
	}
}

func TestScanSkipsSymbolsWithOpenPosition(t *testing.T) {
	broker := &fakeBroker{}
	e := testEngine(testParams(), &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, broker)

	e.ScanOnce(context.Background())
	e.ScanOnce(context.Background())

	if got := len(e.ActiveTrades()); got != 1 {
		t.Errorf("active trades after rescanning: got %d, want 1", got)
	}
	if broker.orders != 1 {
		t.Errorf("broker orders: got %d, want 1", broker.orders)
	}
}

func TestScanBlockedWhenMarketClosed(t *testing.T) {
	e := testEngine(testParams(), &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, &fakeBroker{})
	sunday := time.Date(2026, time.January, 4, 10, 30, 0, 0, markethours.IST)
	e.deps.Now = func() time.Time { return sunday }

	e.ScanOnce(context.Background())

	if got := len(e.ActiveTrades()); got != 0 {
		t.Errorf("trades opened on a Sunday: %d", got)
	}
	if !scanLogContains(e, "Market closed") {
		t.Errorf("missing market-closed scan log, got %v", e.ScanLog())
	}
}

func TestScanBlockedPastEntryCutoff(t *testing.T) {
	e := testEngine(testParams(), &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, &fakeBroker{})
	late := time.Date(2026, time.January, 6, 14, 45, 0, 0, markethours.IST)
	e.deps.Now = func() time.Time { return late }

	e.ScanOnce(context.Background())

	if got := len(e.ActiveTrades()); got != 0 {
		t.Errorf("trade opened at entry cutoff: %d", got)
	}
	if !scanLogContains(e, "entry cutoff") {
		t.Errorf("missing entry-cutoff scan log, got %v", e.ScanLog())
	}
}

// Hitting the loss cap exactly blocks: the comparison is inclusive.
func TestDailyLossGateInclusive(t *testing.T) {
	e := testEngine(testParams(), &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, &fakeBroker{})

	e.safety.dailyPnL = -4999.99
	if ok, _ := e.checkSafetyLocked(tradingTime); !ok {
		t.Error("just under the cap should pass")
	}

	e.safety.dailyPnL = -5000
	ok, reason := e.checkSafetyLocked(tradingTime)
	if ok {
		t.Error("exact cap should block")
	}
	if !strings.Contains(reason, "Daily loss cap") {
		t.Errorf("reason: got %q", reason)
	}
}

func TestMaxPositionsGate(t *testing.T) {
	p := testParams()
	p.MaxOpenPositions = 1
	broker := &fakeBroker{}
	e := testEngine(p, &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, broker)

	e.ScanOnce(context.Background())
	if got := len(e.ActiveTrades()); got != 1 {
		t.Fatalf("setup: got %d trades, want 1", got)
	}

	e.ScanOnce(context.Background())
	if !scanLogContains(e, "Max positions") {
		t.Errorf("missing max-positions scan log, got %v", e.ScanLog())
	}
	if broker.orders != 1 {
		t.Errorf("broker orders: got %d, want 1", broker.orders)
	}
}

func TestConfidenceFloorRejectsSignal(t *testing.T) {
	p := testParams()
	p.MinConfidence = 80 // momentum_breakout carries 78
	e := testEngine(p, &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, &fakeBroker{})

	e.ScanOnce(context.Background())

	if got := len(e.ActiveTrades()); got != 0 {
		t.Errorf("trade opened below confidence floor: %d", got)
	}
	if !scanLogContains(e, "below confidence floor") {
		t.Errorf("missing confidence-floor scan log, got %v", e.ScanLog())
	}
}

func TestRewardRiskRejection(t *testing.T) {
	p := testParams()
	p.Target1Percent = 1 // below the 1.5% stop distance
	e := testEngine(p, &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, &fakeBroker{})

	e.ScanOnce(context.Background())

	if got := len(e.ActiveTrades()); got != 0 {
		t.Errorf("trade opened with reward:risk below 1:1: %d", got)
	}
	if !scanLogContains(e, "reward:risk") {
		t.Errorf("missing reward:risk scan log, got %v", e.ScanLog())
	}
}

// openTrade inserts a position directly, bypassing the scan path.
func openTrade(e *Engine, dir model.Direction, entry, sl, t1 float64) *model.ActiveTrade {
	tr := &model.ActiveTrade{
		ID:         "AT-test",
		Symbol:     "RELIANCE",
		Exchange:   "NSE",
		Direction:  dir,
		EntryPrice: entry,
		LTP:        entry,
		Qty:        10,
		StopLoss:   sl,
		Target1:    t1,
		Target2:    t1 * 1.02,
		EntryTime:  tradingTime,
	}
	e.active[tr.Key()] = tr
	return tr
}

func TestMonitorStopLossExit(t *testing.T) {
	ticks := &fakeTicks{price: 97}
	e := testEngine(testParams(), &fakeCandles{}, ticks, &fakeBroker{})
	openTrade(e, model.Buy, 100, 98, 102)

	e.MonitorOnce(context.Background())

	if got := len(e.ActiveTrades()); got != 0 {
		t.Fatalf("position still open after stop hit")
	}
	hist := e.TradeHistory()
	if len(hist) != 1 {
		t.Fatalf("history: got %d, want 1", len(hist))
	}
	if hist[0].ExitReason != model.ExitStopLoss {
		t.Errorf("exit reason: got %q, want %q", hist[0].ExitReason, model.ExitStopLoss)
	}
	if hist[0].PnL >= 0 {
		t.Errorf("stop-loss exit should realize a loss, got %+v", hist[0].PnL)
	}
}

func TestMonitorTargetExit(t *testing.T) {
	ticks := &fakeTicks{price: 103}
	e := testEngine(testParams(), &fakeCandles{}, ticks, &fakeBroker{})
	openTrade(e, model.Buy, 100, 98, 102)

	e.MonitorOnce(context.Background())

	hist := e.TradeHistory()
	if len(hist) != 1 || hist[0].ExitReason != model.ExitTarget1 {
		t.Fatalf("expected TARGET1 exit, got %+v", hist)
	}
	if hist[0].PnL <= 0 {
		t.Errorf("target exit should realize a profit, got %v", hist[0].PnL)
	}
}

func TestMonitorStopLossExitShort(t *testing.T) {
	ticks := &fakeTicks{price: 103}
	e := testEngine(testParams(), &fakeCandles{}, ticks, &fakeBroker{})
	openTrade(e, model.Sell, 100, 102, 98)

	e.MonitorOnce(context.Background())

	hist := e.TradeHistory()
	if len(hist) != 1 || hist[0].ExitReason != model.ExitStopLoss {
		t.Fatalf("expected STOPLOSS exit on short, got %+v", hist)
	}
}

func TestTrailingStopRatchetsOnly(t *testing.T) {
	ticks := &fakeTicks{price: 102}
	e := testEngine(testParams(), &fakeCandles{}, ticks, &fakeBroker{})
	tr := openTrade(e, model.Buy, 100, 98.5, 110)

	e.MonitorOnce(context.Background()) // +2% activates trailing
	raised := tr.StopLoss
	if raised <= 98.5 {
		t.Fatalf("trailing stop did not raise: %v", raised)
	}
	want := 102 * (1 - 0.01)
	if raised != want {
		t.Errorf("trailing stop: got %v, want %v", raised, want)
	}

	ticks.price = 101.5 // pullback; stop must not loosen
	e.MonitorOnce(context.Background())
	if tr.StopLoss != raised {
		t.Errorf("stop loosened on pullback: %v -> %v", raised, tr.StopLoss)
	}
}

func TestBreakevenMovesStopOnce(t *testing.T) {
	ticks := &fakeTicks{price: 100.9}
	e := testEngine(testParams(), &fakeCandles{}, ticks, &fakeBroker{})
	tr := openTrade(e, model.Buy, 100, 98, 110)

	e.MonitorOnce(context.Background()) // +0.9% crosses the 0.8% trigger
	if tr.StopLoss != 100 {
		t.Fatalf("breakeven stop: got %v, want entry 100", tr.StopLoss)
	}
	if !tr.BreakevenDone {
		t.Fatal("breakeven flag not set")
	}

	// The move happens once; a later manual stop is left alone.
	tr.StopLoss = 99
	e.MonitorOnce(context.Background())
	if tr.StopLoss != 99 {
		t.Errorf("breakeven re-applied: got %v, want 99", tr.StopLoss)
	}
}

func TestSquareOffClosesEverything(t *testing.T) {
	ticks := &fakeTicks{price: 100.5}
	e := testEngine(testParams(), &fakeCandles{}, ticks, &fakeBroker{})
	openTrade(e, model.Buy, 100, 98, 110)
	late := time.Date(2026, time.January, 6, 15, 20, 0, 0, markethours.IST)
	e.deps.Now = func() time.Time { return late }

	e.MonitorOnce(context.Background())

	if got := len(e.ActiveTrades()); got != 0 {
		t.Errorf("positions open after square-off: %d", got)
	}
	hist := e.TradeHistory()
	if len(hist) != 1 || hist[0].ExitReason != model.ExitSquareOff {
		t.Errorf("expected SQUARE_OFF exit, got %+v", hist)
	}
}

func TestKillAllIsTerminal(t *testing.T) {
	ticks := &fakeTicks{price: 99}
	e := New(testParams(), Deps{
		Candles: &fakeCandles{},
		Ticks:   ticks,
		Broker:  &fakeBroker{},
		Now:     func() time.Time { return tradingTime },
	})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	e.mu.Lock()
	openTrade(e, model.Buy, 100, 98, 110)
	e.mu.Unlock()

	e.KillAll(context.Background())

	if got := e.Status(); got != StatusEmergency {
		t.Errorf("status: got %v, want %v", got, StatusEmergency)
	}
	if got := len(e.ActiveTrades()); got != 0 {
		t.Errorf("positions open after kill: %d", got)
	}
	hist := e.TradeHistory()
	if len(hist) != 1 || hist[0].ExitReason != model.ExitEmergency {
		t.Errorf("expected EMERGENCY_KILL exit, got %+v", hist)
	}
	if err := e.Start(context.Background()); err == nil {
		t.Error("Start after KillAll should be rejected")
	}
}

func TestPauseAndResume(t *testing.T) {
	e := testEngine(testParams(), &fakeCandles{candles: breakoutSeries(60)}, &fakeTicks{price: 1100}, &fakeBroker{})

	e.Pause()
	if got := e.Status(); got != StatusPaused {
		t.Fatalf("status after pause: %v", got)
	}
	e.ScanOnce(context.Background())
	if got := len(e.ActiveTrades()); got != 0 {
		t.Errorf("paused engine opened a trade")
	}

	e.Resume()
	e.ScanOnce(context.Background())
	if got := len(e.ActiveTrades()); got != 1 {
		t.Errorf("resumed engine did not scan: %d trades", got)
	}
}

func TestCooldownStartsAfterTwoLosses(t *testing.T) {
	e := testEngine(testParams(), &fakeCandles{}, &fakeTicks{}, &fakeBroker{})

	e.safety.recordClose(-500, tradingTime, e.params.Cooldown)
	if ok, _ := e.checkSafetyLocked(tradingTime); !ok {
		t.Fatal("one loss should not start cooldown")
	}

	e.safety.recordClose(-500, tradingTime, e.params.Cooldown)
	ok, reason := e.checkSafetyLocked(tradingTime)
	if ok {
		t.Fatal("two consecutive losses should start cooldown")
	}
	if !strings.Contains(reason, "Cooldown") {
		t.Errorf("reason: got %q", reason)
	}

	// a win clears the streak
	e.safety.cooldownUntil = time.Time{}
	e.safety.recordClose(800, tradingTime, e.params.Cooldown)
	if e.safety.consecLosses != 0 {
		t.Errorf("consecutive losses after win: got %d, want 0", e.safety.consecLosses)
	}
}

func TestTodayStatsProfitFactorSentinel(t *testing.T) {
	e := testEngine(testParams(), &fakeCandles{}, &fakeTicks{}, &fakeBroker{})
	e.safety.recordClose(1000, tradingTime, 0)
	e.safety.recordClose(500, tradingTime, 0)

	stats := e.TodayStats()
	if stats.ProfitFactor != 999 {
		t.Errorf("profit factor with zero losses: got %v, want 999", stats.ProfitFactor)
	}
	if stats.Wins != 2 || stats.Losses != 0 {
		t.Errorf("wins/losses: got %d/%d", stats.Wins, stats.Losses)
	}
	if stats.BestTrade != 1000 || stats.WorstTrade != 500 {
		t.Errorf("best/worst: got %v/%v", stats.BestTrade, stats.WorstTrade)
	}
}

func TestSizePositionATRStop(t *testing.T) {
	p := testParams()
	p.UseATRStop = true
	p.ATRMultiplier = 2
	e := testEngine(p, &fakeCandles{}, &fakeTicks{}, &fakeBroker{})

	size, ok := e.sizePosition(1000, 5, model.Buy)
	if !ok {
		t.Fatal("sizing rejected")
	}
	if size.StopLoss != 990 { // 1000 - 2*5
		t.Errorf("ATR stop: got %v, want 990", size.StopLoss)
	}
	// risk budget 1000 over a 10-point stop
	if size.Qty != 100 {
		t.Errorf("qty: got %d, want 100", size.Qty)
	}
}

type fakeMetrics struct {
	scans         int
	blocked       []string
	opened        int
	closed        int
	positions     int
	candleFetches int
	ltpFetches    int
	notifyFails   int
}

func (m *fakeMetrics) ScanStarted() { m.scans++ }
func (m *fakeMetrics) ScanBlocked(reason string) { m.blocked = append(m.blocked, reason) }
func (m *fakeMetrics) TradeOpened() { m.opened++ }
func (m *fakeMetrics) TradeClosed(string, float64) { m.closed++ }
func (m *fakeMetrics) SetOpenPositions(n int) { m.positions = n }
func (m *fakeMetrics) ObserveCandleFetch(time.Duration) { m.candleFetches++ }
func (m *fakeMetrics) ObserveLTPFetch(time.Duration) { m.ltpFetches++ }
func (m *fakeMetrics) NotificationFailed() { m.notifyFails++ }

type failingNotifier struct{}

func (failingNotifier) Send(context.Context, notification.Alert) error {
	return context.DeadlineExceeded
}

func TestMetricsObservedAcrossScanAndMonitor(t *testing.T) {
	m := &fakeMetrics{}
	e := New(testParams(), Deps{
		Candles:  &fakeCandles{candles: breakoutSeries(60)},
		Ticks:    &fakeTicks{price: 1100},
		Broker:   &fakeBroker{},
		Metrics:  m,
		Notifier: failingNotifier{},
		Now:      func() time.Time { return tradingTime },
	})
	e.status = StatusRunning

	e.ScanOnce(context.Background())
	if m.scans != 1 {
		t.Errorf("scans started: got %d, want 1", m.scans)
	}
	if m.candleFetches != 1 {
		t.Errorf("candle fetch observations: got %d, want 1", m.candleFetches)
	}
	if m.opened != 1 {
		t.Fatalf("trades opened: got %d, want 1", m.opened)
	}
	if m.notifyFails == 0 {
		t.Error("expected failed entry notification to be counted")
	}

	// LTP 1100 is below the entry stop, so the monitor pass closes it.
	e.MonitorOnce(context.Background())
	if m.ltpFetches != 1 {
		t.Errorf("ltp fetch observations: got %d, want 1", m.ltpFetches)
	}
	if m.closed != 1 {
		t.Errorf("trades closed: got %d, want 1", m.closed)
	}
	if m.positions != 0 {
		t.Errorf("open positions gauge: got %d, want 0", m.positions)
	}
}
