// Package execution provides the engine's broker adapters (paper and
// Angel One live) and the SQLite trade journal.
package execution

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autotradev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Journal persists closed round-trips to SQLite for audit and
// post-session analysis.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the journal database.
func NewJournal(dbPath string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS closed_trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id     TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		exchange     TEXT NOT NULL,
		direction    TEXT NOT NULL,
		strategy     TEXT,
		qty          INTEGER NOT NULL,
		entry_price  REAL NOT NULL,
		exit_price   REAL NOT NULL,
		stop_loss    REAL,
		target1      REAL,
		pnl          REAL NOT NULL,
		pnl_percent  REAL NOT NULL,
		confidence   INTEGER,
		exit_reason  TEXT NOT NULL,
		entry_time   TEXT NOT NULL,
		exit_time    TEXT NOT NULL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(exchange, symbol);
	CREATE INDEX IF NOT EXISTS idx_closed_trades_exit_time ON closed_trades(exit_time);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	if logger != nil {
		logger.Info("trade journal opened", slog.String("path", dbPath))
	}
	return &Journal{db: db}, nil
}

// RecordTrade persists one closed trade.
func (j *Journal) RecordTrade(t model.ClosedTrade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO closed_trades
		 (trade_id, symbol, exchange, direction, strategy, qty, entry_price, exit_price,
		  stop_loss, target1, pnl, pnl_percent, confidence, exit_reason, entry_time, exit_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.Exchange, string(t.Direction), t.Strategy, t.Qty,
		t.EntryPrice, t.ExitPrice, t.StopLoss, t.Target1, t.PnL, t.PnLPercent,
		t.Confidence, t.ExitReason,
		t.EntryTime.Format(time.RFC3339), t.ExitTime.Format(time.RFC3339),
	)
	return err
}

// Trades returns the last limit closed trades, newest first.
func (j *Journal) Trades(limit int) ([]model.ClosedTrade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT trade_id, symbol, exchange, direction, strategy, qty, entry_price, exit_price,
		        stop_loss, target1, pnl, pnl_percent, confidence, exit_reason, entry_time, exit_time
		 FROM closed_trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.ClosedTrade
	for rows.Next() {
		var t model.ClosedTrade
		var direction, entryTime, exitTime string
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Exchange, &direction, &t.Strategy,
			&t.Qty, &t.EntryPrice, &t.ExitPrice, &t.StopLoss, &t.Target1,
			&t.PnL, &t.PnLPercent, &t.Confidence, &t.ExitReason,
			&entryTime, &exitTime); err != nil {
			return nil, err
		}
		t.Direction = model.Direction(direction)
		t.EntryTime, _ = time.Parse(time.RFC3339, entryTime)
		t.ExitTime, _ = time.Parse(time.RFC3339, exitTime)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
