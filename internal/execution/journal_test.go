package execution

import (
	"path/filepath"
	"testing"
	"time"

	"autotradev1/internal/model"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "trades.db"), nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func closedTrade(id string, pnl float64) model.ClosedTrade {
	entry := time.Date(2026, 1, 6, 10, 30, 0, 0, time.UTC)
	return model.ClosedTrade{
		ActiveTrade: model.ActiveTrade{
			ID:         id,
			Symbol:     "RELIANCE",
			Exchange:   "NSE",
			Direction:  model.Buy,
			EntryPrice: 2450.50,
			Qty:        10,
			StopLoss:   2413.75,
			Target1:    2499.50,
			PnL:        pnl,
			PnLPercent: pnl / 24505 * 100,
			EntryTime:  entry,
			Confidence: 78,
			Strategy:   "momentum_breakout",
		},
		ExitPrice:  2450.50 + pnl/10,
		ExitTime:   entry.Add(45 * time.Minute),
		ExitReason: "TARGET1",
	}
}

func TestRecordAndReadBack(t *testing.T) {
	j := openTestJournal(t)

	want := closedTrade("T-1", 490)
	if err := j.RecordTrade(want); err != nil {
		t.Fatalf("record: %v", err)
	}

	trades, err := j.Trades(10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	got := trades[0]
	if got.ID != want.ID || got.Symbol != want.Symbol || got.Exchange != want.Exchange {
		t.Errorf("identity mismatch: %+v", got)
	}
	if got.Direction != model.Buy {
		t.Errorf("expected BUY, got %s", got.Direction)
	}
	if got.Strategy != want.Strategy || got.Confidence != want.Confidence {
		t.Errorf("signal fields lost: strategy=%q confidence=%d", got.Strategy, got.Confidence)
	}
	if got.EntryPrice != want.EntryPrice || got.ExitPrice != want.ExitPrice || got.Qty != want.Qty {
		t.Errorf("price fields mismatch: %+v", got)
	}
	if got.PnL != want.PnL || got.ExitReason != want.ExitReason {
		t.Errorf("outcome mismatch: pnl=%v reason=%q", got.PnL, got.ExitReason)
	}
	if !got.EntryTime.Equal(want.EntryTime) || !got.ExitTime.Equal(want.ExitTime) {
		t.Errorf("timestamps mismatch: entry=%v exit=%v", got.EntryTime, got.ExitTime)
	}
}

func TestTradesNewestFirstWithLimit(t *testing.T) {
	j := openTestJournal(t)

	for i, id := range []string{"T-1", "T-2", "T-3"} {
		if err := j.RecordTrade(closedTrade(id, float64(100*(i+1)))); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	trades, err := j.Trades(2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected limit 2, got %d", len(trades))
	}
	if trades[0].ID != "T-3" || trades[1].ID != "T-2" {
		t.Errorf("expected newest first, got %s then %s", trades[0].ID, trades[1].ID)
	}
}

func TestTradesEmptyJournal(t *testing.T) {
	j := openTestJournal(t)
	trades, err := j.Trades(10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected empty journal, got %d trades", len(trades))
	}
}
