// Package engine implements the autonomous execution engine: a stateful
// scheduler that periodically scans a watchlist for signals, opens sized
// positions behind a safety gate, and monitors open positions for
// stop-loss, target, trailing, breakeven and time-based exits.
//
// The engine is driven by two periodic callbacks (scan and monitor) that
// never overlap: all state mutation happens under a single lock, and the
// lifecycle actions (Start/Stop/Pause/Resume/KillAll) take the same lock.
// ScanOnce and MonitorOnce are exported so tests can drive the state
// machine without wall-clock tickers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autotradev1/internal/indicator"
	"autotradev1/internal/logger"
	"autotradev1/internal/markethours"
	"autotradev1/internal/model"
	"autotradev1/internal/notification"
	"autotradev1/internal/pattern"
	"autotradev1/internal/strategy"
)

// Status is the engine lifecycle state.
type Status string

const (
	StatusStopped   Status = "STOPPED"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusEmergency Status = "EMERGENCY_STOPPED"
)

// cooldownAfterLosses is the consecutive-loss count that starts a
// cooldown window. Distinct from the hard consecutive-loss gate cap.
const cooldownAfterLosses = 2

// Params holds the engine's numeric and list configuration. All fields
// are read-only once the engine is constructed.
type Params struct {
	Paper   bool
	Capital float64

	Timeframe   string
	HistoryBars int

	ScanInterval    time.Duration
	MonitorInterval time.Duration

	MinConfidence    int
	MaxOpenPositions int
	MaxDailyLoss     float64
	MaxConsecLosses  int
	Cooldown         time.Duration

	MaxDeployedPercent float64
	RiskPerTradePct    float64

	StopLossPercent float64
	UseATRStop      bool
	ATRMultiplier   float64
	Target1Percent  float64
	Target2Percent  float64

	TrailingSL       bool
	TrailingPercent  float64
	TrailingActivate float64
	BreakevenSL      bool
	BreakevenTrigger float64

	// Minutes past midnight IST; parse with markethours.ParseHHMM.
	NoNewTradesAfterMin int
	SquareOffMin        int

	Strategies []string
	Watchlist  []model.Instrument
}

// TradeRecorder persists closed round-trips (e.g. the SQLite journal).
type TradeRecorder interface {
	RecordTrade(t model.ClosedTrade) error
}

// Recorder of engine metrics; satisfied by *metrics.Metrics.
type MetricsSink interface {
	ScanStarted()
	ScanBlocked(reason string)
	TradeOpened()
	TradeClosed(exitReason string, pnl float64)
	SetOpenPositions(n int)
	ObserveCandleFetch(d time.Duration)
	ObserveLTPFetch(d time.Duration)
	NotificationFailed()
}

// Deps are the engine's external collaborators. Candles and Broker are
// required; the rest are optional and default to no-ops.
type Deps struct {
	Candles  model.CandleSource
	Ticks    model.LTPSource
	Broker   model.OrderPlacer
	Notifier notification.Notifier
	Journal  TradeRecorder
	Metrics  MetricsSink
	Logger   *slog.Logger
	Now      func() time.Time

	// ScanLogSink mirrors every scan-log entry to an external sink
	// (e.g. the Redis scanlog stream). Must not block.
	ScanLogSink func(model.ScanLogEntry)
}

// Engine owns the open-positions collection and daily safety counters.
// There is no cross-instance sharing.
type Engine struct {
	mu sync.Mutex

	params Params
	deps   Deps

	status    Status
	emergency bool

	active  map[string]*model.ActiveTrade
	history []model.ClosedTrade
	safety  safetyState
	scanLog logRing
	tokens  map[string]model.Instrument // watchlist lookup by key
	seq     int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a stopped engine. Optional deps are defaulted here so the
// scan/monitor paths never nil-check collaborators.
func New(p Params, d Deps) *Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLogNotifier()
	}
	tokens := make(map[string]model.Instrument, len(p.Watchlist))
	for _, inst := range p.Watchlist {
		tokens[inst.Key()] = inst
	}
	return &Engine{
		params:  p,
		deps:    d,
		status:  StatusStopped,
		active:  make(map[string]*model.ActiveTrade),
		tokens:  tokens,
		scanLog: newLogRing(200),
	}
}

// Status returns the current lifecycle state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start transitions STOPPED/PAUSED → RUNNING, schedules the scan and
// monitor tickers and performs one immediate scan. Rejected after an
// emergency stop: a killed engine must be re-created.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.emergency {
		e.mu.Unlock()
		return fmt.Errorf("engine emergency-stopped; create a new engine to resume trading")
	}
	if e.status == StatusRunning {
		e.mu.Unlock()
		return nil
	}
	resuming := e.status == StatusPaused
	e.status = StatusRunning
	if resuming {
		e.mu.Unlock()
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	e.deps.Logger.Info("engine started",
		slog.Bool("paper", e.params.Paper),
		slog.Int("watchlist", len(e.params.Watchlist)),
		slog.Duration("scan_interval", e.params.ScanInterval))

	e.wg.Add(2)
	go e.scanLoop(runCtx)
	go e.monitorLoop(runCtx)
	return nil
}

// Pause suspends scan and monitor logic without cancelling the tickers.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		e.status = StatusPaused
		e.appendLog("⏸️", "Engine paused", "warning")
	}
}

// Resume re-enables a paused engine.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusPaused {
		e.status = StatusRunning
		e.appendLog("▶️", "Engine resumed", "info")
	}
}

// Stop cancels both scheduled callbacks and waits for them to exit.
// Open positions are intentionally left open. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	if e.status == StatusRunning || e.status == StatusPaused {
		e.status = StatusStopped
	}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		e.wg.Wait()
		e.deps.Logger.Info("engine stopped", slog.Int("open_positions", len(e.ActiveTrades())))
	}
}

// KillAll is the emergency stop: it sets the terminal emergency state
// and cancels the schedulers before any close call goes out, then
// force-closes every open position regardless of P&L.
func (e *Engine) KillAll(ctx context.Context) {
	e.mu.Lock()
	e.emergency = true
	e.status = StatusEmergency
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		e.wg.Wait()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.appendLog("🚨", "EMERGENCY KILL — closing all positions", "error")
	for _, t := range e.active {
		price := t.LTP
		if ltp, err := e.ltp(ctx, t); err == nil {
			price = ltp
		}
		e.closeTradeLocked(ctx, t, price, model.ExitEmergency)
	}
	e.notify(ctx, notification.AlertCritical, "Emergency stop",
		"All positions force-closed; engine halted")
}

func (e *Engine) scanLoop(ctx context.Context) {
	defer e.wg.Done()
	e.ScanOnce(ctx)
	ticker := time.NewTicker(e.params.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.ScanOnce(ctx)
		}
	}
}

func (e *Engine) monitorLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.params.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.MonitorOnce(ctx)
		}
	}
}

// ScanOnce runs one full watchlist scan. A failing safety gate aborts
// the entire scan with a logged reason; per-symbol problems (thin
// history, fetch errors, poor reward:risk) skip only that symbol.
func (e *Engine) ScanOnce(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning {
		return
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.ScanStarted()
	}

	now := e.deps.Now()
	ctx = logger.WithScanID(ctx, logger.NewScanID(now))
	if ok, reason := e.checkSafetyLocked(now); !ok {
		e.appendLog("🚫", reason, "warning")
		e.deps.Logger.Info("scan blocked",
			append(logger.ScanAttrs(ctx), slog.String("reason", reason))...)
		if e.deps.Metrics != nil {
			e.deps.Metrics.ScanBlocked(reason)
		}
		return
	}

	for _, inst := range e.params.Watchlist {
		if _, open := e.active[inst.Key()]; open {
			continue
		}
		e.scanSymbolLocked(ctx, inst)
	}
}

// scanSymbolLocked evaluates one watchlist entry and opens a position if
// a qualifying signal survives sizing. Caller holds e.mu.
func (e *Engine) scanSymbolLocked(ctx context.Context, inst model.Instrument) {
	fetchStart := time.Now()
	candles, err := e.deps.Candles.GetCandles(ctx, inst, e.params.Timeframe, e.params.HistoryBars)
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveCandleFetch(time.Since(fetchStart))
	}
	if err != nil {
		e.deps.Logger.Error("candle fetch failed",
			append(logger.ScanAttrs(ctx),
				slog.String("symbol", inst.Symbol), slog.String("err", err.Error()))...)
		return
	}

	snap := indicator.Compute(candles)
	if snap == nil {
		return // empty history: skip silently
	}
	patterns := pattern.Detect(candles)
	score := strategy.Score(snap, patterns)

	e.appendLog("📊", fmt.Sprintf("%s — RSI %.1f | MACD %+.2f | score %.0f",
		inst.Symbol, snap.RSI14, snap.MACD.Histogram, score), "info")

	sig := strategy.Evaluate(e.params.Strategies, candles, snap)
	if sig == nil {
		sig = strategy.ScoreSignal(score)
	}
	if sig == nil {
		return
	}
	if sig.Confidence < e.params.MinConfidence {
		e.appendLog("🔍", fmt.Sprintf("%s %s signal below confidence floor (%d < %d)",
			inst.Symbol, sig.Direction, sig.Confidence, e.params.MinConfidence), "info")
		return
	}

	size, ok := e.sizePosition(snap.CurrentPrice, snap.ATR, sig.Direction)
	if !ok {
		e.appendLog("⚠️", fmt.Sprintf("%s signal rejected: reward:risk below 1:1", inst.Symbol), "warning")
		e.deps.Logger.Warn("reward:risk rejection", slog.String("symbol", inst.Symbol))
		return
	}

	// Re-check capacity: earlier symbols in this scan may have filled it.
	if len(e.active) >= e.params.MaxOpenPositions {
		return
	}
	if e.deployedLocked()+size.Deployed() > e.params.MaxDeployedPercent/100*e.params.Capital {
		e.appendLog("🚫", fmt.Sprintf("%s skipped: deployment cap reached", inst.Symbol), "warning")
		return
	}

	orderID, err := e.deps.Broker.PlaceOrder(ctx, inst, sig.Direction, size.Qty)
	if err != nil {
		e.appendLog("❌", fmt.Sprintf("Order failed for %s: %v", inst.Symbol, err), "error")
		e.deps.Logger.Error("order placement failed",
			slog.String("symbol", inst.Symbol), slog.String("err", err.Error()))
		e.notify(ctx, notification.AlertWarning, "Order failed",
			fmt.Sprintf("%s %s: %v", sig.Direction, inst.Symbol, err))
		return
	}

	e.seq++
	t := &model.ActiveTrade{
		ID:         fmt.Sprintf("AT-%d", e.seq),
		Symbol:     inst.Symbol,
		Exchange:   inst.Exchange,
		Direction:  sig.Direction,
		EntryPrice: size.Entry,
		LTP:        size.Entry,
		Qty:        size.Qty,
		StopLoss:   size.StopLoss,
		Target1:    size.Target1,
		Target2:    size.Target2,
		EntryTime:  e.deps.Now(),
		Confidence: sig.Confidence,
		Strategy:   sig.Strategy,
	}
	e.active[t.Key()] = t

	e.appendLog("📈", fmt.Sprintf("%s %s ₹%.2f x%d (SL %.2f, T1 %.2f) — %s",
		sig.Direction, inst.Symbol, size.Entry, size.Qty, size.StopLoss, size.Target1, sig.Reason), "trade")
	e.deps.Logger.Info("trade opened",
		slog.String("id", t.ID),
		slog.String("symbol", inst.Symbol),
		slog.String("direction", string(sig.Direction)),
		slog.Int64("qty", size.Qty),
		slog.Float64("entry", size.Entry),
		slog.String("order_id", orderID),
		slog.String("strategy", sig.Strategy))
	e.notify(ctx, notification.AlertInfo, "Trade opened",
		fmt.Sprintf("%s %s x%d @ ₹%.2f (%s)", sig.Direction, inst.Symbol, size.Qty, size.Entry, sig.Reason))
	if e.deps.Metrics != nil {
		e.deps.Metrics.TradeOpened()
		e.deps.Metrics.SetOpenPositions(len(e.active))
	}
}

// MonitorOnce walks every open position once: refresh LTP, apply exits
// (stop-loss before target), ratchet trailing and breakeven stops, and
// force-close everything at or after the square-off time.
func (e *Engine) MonitorOnce(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning || len(e.active) == 0 {
		return
	}

	now := e.deps.Now()
	squareOff := markethours.MinutesOfDay(now) >= e.params.SquareOffMin

	for _, t := range e.active {
		ltp, err := e.ltp(ctx, t)
		if err != nil {
			e.deps.Logger.Warn("ltp fetch failed",
				slog.String("symbol", t.Symbol), slog.String("err", err.Error()))
			continue
		}
		t.LTP = ltp
		t.PnL = t.DirSign() * (ltp - t.EntryPrice) * float64(t.Qty)
		t.PnLPercent = t.DirSign() * (ltp - t.EntryPrice) / t.EntryPrice * 100

		if squareOff {
			e.closeTradeLocked(ctx, t, ltp, model.ExitSquareOff)
			continue
		}

		// Stop-loss is checked before target; the checks are exclusive.
		if t.DirSign()*(t.StopLoss-ltp) >= 0 {
			e.closeTradeLocked(ctx, t, ltp, model.ExitStopLoss)
			continue
		}
		if t.DirSign()*(ltp-t.Target1) >= 0 {
			e.closeTradeLocked(ctx, t, ltp, model.ExitTarget1)
			continue
		}

		if e.params.TrailingSL && t.PnLPercent > e.params.TrailingActivate {
			newSL := ltp * (1 - t.DirSign()*e.params.TrailingPercent/100)
			// Ratchet only: the stop never loosens.
			if (t.Direction == model.Buy && newSL > t.StopLoss) ||
				(t.Direction == model.Sell && newSL < t.StopLoss) {
				t.StopLoss = newSL
			}
		}
		if e.params.BreakevenSL && !t.BreakevenDone && t.PnLPercent >= e.params.BreakevenTrigger {
			if (t.Direction == model.Buy && t.EntryPrice > t.StopLoss) ||
				(t.Direction == model.Sell && t.EntryPrice < t.StopLoss) {
				t.StopLoss = t.EntryPrice
			}
			t.BreakevenDone = true
		}
	}
}

// ltp resolves the latest price for a trade's instrument.
func (e *Engine) ltp(ctx context.Context, t *model.ActiveTrade) (float64, error) {
	inst, ok := e.tokens[t.Key()]
	if !ok {
		inst = model.Instrument{Symbol: t.Symbol, Exchange: t.Exchange}
	}
	fetchStart := time.Now()
	price, err := e.deps.Ticks.LTP(ctx, inst)
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveLTPFetch(time.Since(fetchStart))
	}
	return price, err
}

// closeTradeLocked realizes the trade at price, updates the safety
// counters and emits logs, journal and notifications. Caller holds e.mu.
func (e *Engine) closeTradeLocked(ctx context.Context, t *model.ActiveTrade, price float64, reason string) {
	// Square the broker position with an opposite order. A failed close
	// order is logged and the internal position is still retired: the
	// monitor must never wedge on a broker error.
	closeDir := model.Sell
	if t.Direction == model.Sell {
		closeDir = model.Buy
	}
	inst := e.tokens[t.Key()]
	if inst.Symbol == "" {
		inst = model.Instrument{Symbol: t.Symbol, Exchange: t.Exchange}
	}
	if _, err := e.deps.Broker.PlaceOrder(ctx, inst, closeDir, t.Qty); err != nil {
		e.deps.Logger.Error("close order failed",
			slog.String("symbol", t.Symbol), slog.String("err", err.Error()))
	}

	t.LTP = price
	t.PnL = t.DirSign() * (price - t.EntryPrice) * float64(t.Qty)
	t.PnLPercent = t.DirSign() * (price - t.EntryPrice) / t.EntryPrice * 100

	closed := model.ClosedTrade{
		ActiveTrade: *t,
		ExitPrice:   price,
		ExitTime:    e.deps.Now(),
		ExitReason:  reason,
	}
	delete(e.active, t.Key())
	e.history = append(e.history, closed)
	e.safety.recordClose(closed.PnL, e.deps.Now(), e.params.Cooldown)

	emoji, typ := "💰", "success"
	if closed.PnL < 0 {
		emoji, typ = "❌", "error"
	}
	e.appendLog(emoji, fmt.Sprintf("Closed %s %s @ ₹%.2f [%s] P&L %+.2f",
		t.Direction, t.Symbol, price, reason, closed.PnL), typ)
	e.deps.Logger.Info("trade closed",
		slog.String("id", t.ID),
		slog.String("symbol", t.Symbol),
		slog.String("reason", reason),
		slog.Float64("pnl", closed.PnL))
	e.notify(ctx, notification.AlertInfo, "Trade closed",
		fmt.Sprintf("%s %s [%s] P&L ₹%+.2f", t.Direction, t.Symbol, reason, closed.PnL))

	if e.deps.Journal != nil {
		if err := e.deps.Journal.RecordTrade(closed); err != nil {
			e.deps.Logger.Error("journal write failed", slog.String("err", err.Error()))
		}
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.TradeClosed(reason, closed.PnL)
		e.deps.Metrics.SetOpenPositions(len(e.active))
	}
}

// notify delivers fire-and-forget; a sink failure only logs.
func (e *Engine) notify(ctx context.Context, level notification.AlertLevel, title, msg string) {
	if err := e.deps.Notifier.Send(ctx, notification.Alert{Level: level, Title: title, Message: msg}); err != nil {
		e.deps.Logger.Warn("notification failed", slog.String("err", err.Error()))
		if e.deps.Metrics != nil {
			e.deps.Metrics.NotificationFailed()
		}
	}
}

// ActiveTrades returns a snapshot of the open positions.
func (e *Engine) ActiveTrades() []model.ActiveTrade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ActiveTrade, 0, len(e.active))
	for _, t := range e.active {
		out = append(out, *t)
	}
	return out
}

// TradeHistory returns a snapshot of today's closed trades.
func (e *Engine) TradeHistory() []model.ClosedTrade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ClosedTrade, len(e.history))
	copy(out, e.history)
	return out
}

// ScanLog returns the UI-facing scan log, oldest first.
func (e *Engine) ScanLog() []model.ScanLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanLog.entries()
}

// SetScanLogSink installs (or replaces) the external scan-log mirror.
// Call before Start; entries logged earlier are not replayed.
func (e *Engine) SetScanLogSink(sink func(model.ScanLogEntry)) {
	e.mu.Lock()
	e.deps.ScanLogSink = sink
	e.mu.Unlock()
}

func (e *Engine) appendLog(emoji, msg, typ string) {
	entry := model.ScanLogEntry{
		Time:    e.deps.Now(),
		Emoji:   emoji,
		Message: msg,
		Type:    typ,
	}
	e.scanLog.append(entry)
	if e.deps.ScanLogSink != nil {
		e.deps.ScanLogSink(entry)
	}
}

func (e *Engine) deployedLocked() float64 {
	total := 0.0
	for _, t := range e.active {
		total += t.Deployed()
	}
	return total
}
