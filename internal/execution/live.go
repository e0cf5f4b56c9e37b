package execution

import (
	"context"
	"fmt"
	"log/slog"

	"autotradev1/internal/model"
	"autotradev1/pkg/smartconnect"
)

// LiveBroker places real intraday market orders through the Angel One
// SmartAPI.
type LiveBroker struct {
	client *smartconnect.Client
	logger *slog.Logger
}

// NewLiveBroker wraps an authenticated SmartAPI client.
func NewLiveBroker(client *smartconnect.Client, logger *slog.Logger) *LiveBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveBroker{client: client, logger: logger}
}

// PlaceOrder implements model.OrderPlacer with a NORMAL/INTRADAY
// market order.
func (b *LiveBroker) PlaceOrder(ctx context.Context, inst model.Instrument, dir model.Direction, qty int64) (string, error) {
	orderID, err := b.client.PlaceOrder(ctx, smartconnect.OrderParams{
		TradingSymbol:   inst.Symbol + "-EQ",
		SymbolToken:     inst.Token,
		TransactionType: string(dir),
		Exchange:        inst.Exchange,
		Quantity:        qty,
	})
	if err != nil {
		return "", fmt.Errorf("live order %s %s x%d: %w", dir, inst.Symbol, qty, err)
	}
	b.logger.Info("live order placed",
		slog.String("order_id", orderID),
		slog.String("symbol", inst.Symbol),
		slog.String("direction", string(dir)),
		slog.Int64("qty", qty))
	return orderID, nil
}

// CancelOrder implements model.OrderPlacer.
func (b *LiveBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := b.client.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}
