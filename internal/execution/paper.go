package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autotradev1/internal/model"
)

// Fill is one simulated paper execution.
type Fill struct {
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Exchange  string          `json:"exchange"`
	Direction model.Direction `json:"direction"`
	Qty       int64           `json:"qty"`
	FilledAt  time.Time       `json:"filled_at"`
}

// PaperBroker simulates order placement without touching a real
// broker. Every order fills immediately; fills are retained for
// inspection.
type PaperBroker struct {
	mu       sync.Mutex
	fills    []Fill
	orderSeq int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewPaperBroker creates a paper broker. now defaults to time.Now.
func NewPaperBroker(logger *slog.Logger, now func() time.Time) *PaperBroker {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &PaperBroker{logger: logger, now: now}
}

// PlaceOrder implements model.OrderPlacer with an instant fill.
func (p *PaperBroker) PlaceOrder(_ context.Context, inst model.Instrument, dir model.Direction, qty int64) (string, error) {
	p.mu.Lock()
	p.orderSeq++
	orderID := fmt.Sprintf("PAPER-%d", p.orderSeq)
	p.fills = append(p.fills, Fill{
		OrderID:   orderID,
		Symbol:    inst.Symbol,
		Exchange:  inst.Exchange,
		Direction: dir,
		Qty:       qty,
		FilledAt:  p.now(),
	})
	p.mu.Unlock()

	p.logger.Info("paper order filled",
		slog.String("order_id", orderID),
		slog.String("symbol", inst.Symbol),
		slog.String("direction", string(dir)),
		slog.Int64("qty", qty))
	return orderID, nil
}

// CancelOrder implements model.OrderPlacer; paper fills are immediate
// so there is never anything to cancel.
func (p *PaperBroker) CancelOrder(_ context.Context, orderID string) error {
	p.logger.Info("paper cancel (no-op)", slog.String("order_id", orderID))
	return nil
}

// Fills returns a snapshot of all simulated fills.
func (p *PaperBroker) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}
