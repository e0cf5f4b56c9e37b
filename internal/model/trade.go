package model

import "time"

// Direction of a trade or signal.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Exit reasons recorded when a position is closed.
const (
	ExitStopLoss  = "STOPLOSS"
	ExitTarget1   = "TARGET1"
	ExitSquareOff = "SQUARE_OFF"
	ExitEmergency = "EMERGENCY_KILL"
	ExitEndOfData = "END_OF_DATA"
)

// ActiveTrade is one open position owned by the execution engine.
// Mutated only by the engine's scan/monitor callbacks.
type ActiveTrade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Exchange   string    `json:"exchange"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	LTP        float64   `json:"ltp"`
	Qty        int64     `json:"qty"`
	StopLoss   float64   `json:"stop_loss"`
	Target1    float64   `json:"target1"`
	Target2    float64   `json:"target2"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	EntryTime  time.Time `json:"entry_time"`
	Confidence int       `json:"confidence"`
	Strategy   string    `json:"strategy"`

	// ratchet state
	BreakevenDone bool `json:"-"`
}

// Key returns a unique key for this trade's instrument: "exchange:symbol".
func (t *ActiveTrade) Key() string {
	return t.Exchange + ":" + t.Symbol
}

// DirSign returns +1 for BUY and -1 for SELL.
func (t *ActiveTrade) DirSign() float64 {
	if t.Direction == Buy {
		return 1
	}
	return -1
}

// Deployed returns the capital committed to this position.
func (t *ActiveTrade) Deployed() float64 {
	return t.EntryPrice * float64(t.Qty)
}

// ClosedTrade is one completed round-trip.
type ClosedTrade struct {
	ActiveTrade
	ExitPrice  float64   `json:"exit_price"`
	ExitTime   time.Time `json:"exit_time"`
	ExitReason string    `json:"exit_reason"`
}

// TodayStats aggregates the engine's realized results for the session.
type TodayStats struct {
	TotalPnL        float64 `json:"total_pnl"`
	TotalPnLPercent float64 `json:"total_pnl_percent"`
	TotalTrades     int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
	ProfitFactor    float64 `json:"profit_factor"`
	BestTrade       float64 `json:"best_trade"`
	WorstTrade      float64 `json:"worst_trade"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
}

// SafetyStatus is the UI-facing snapshot of the engine's safety gates.
type SafetyStatus struct {
	DailyLossUsed        float64 `json:"daily_loss_used"`
	DailyLossLimit       float64 `json:"daily_loss_limit"`
	CapitalDeployed      float64 `json:"capital_deployed"`
	CapitalAvailable     float64 `json:"capital_available"`
	OpenPositions        int     `json:"open_positions"`
	MaxPositions         int     `json:"max_positions"`
	ConsecutiveLosses    int     `json:"consecutive_losses"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	CooldownRemaining    float64 `json:"cooldown_remaining_sec"`
	Status               string  `json:"status"` // safe, warning, danger
}

// ScanLogEntry is one line of the engine's UI-facing scan log.
type ScanLogEntry struct {
	Time    time.Time `json:"time"`
	Emoji   string    `json:"emoji"`
	Message string    `json:"message"`
	Type    string    `json:"type"` // info, success, warning, error, trade
}
