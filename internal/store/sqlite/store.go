// Package sqlite archives candle history for offline backtests. Bars
// downloaded during live sessions are upserted here and read back in
// ascending order so a backtest can replay exactly what the engine saw.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"

	"autotradev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a single-writer SQLite candle archive.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the archive with WAL mode and the schema.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol    TEXT    NOT NULL,
			exchange  TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    INTEGER NOT NULL,
			PRIMARY KEY (exchange, symbol, timeframe, ts)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	if logger != nil {
		logger.Info("sqlite archive opened", slog.String("path", dbPath))
	}
	return &Store{db: db}, nil
}

// SaveCandles upserts a batch in one transaction.
func (s *Store) SaveCandles(inst model.Instrument, timeframe string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, exchange, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(inst.Symbol, inst.Exchange, timeframe,
			c.Time, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadCandles reads bars in [fromTS, toTS] ascending; toTS <= 0 means
// no upper bound.
func (s *Store) LoadCandles(inst model.Instrument, timeframe string, fromTS, toTS int64) ([]model.Candle, error) {
	query := `
		SELECT ts, open, high, low, close, volume FROM candles
		WHERE exchange = ? AND symbol = ? AND timeframe = ? AND ts >= ?`
	args := []any{inst.Exchange, inst.Symbol, timeframe, fromTS}
	if toTS > 0 {
		query += ` AND ts <= ?`
		args = append(args, toTS)
	}
	query += ` ORDER BY ts ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LastTimestamp returns the newest stored bar's timestamp, or 0.
func (s *Store) LastTimestamp(inst model.Instrument, timeframe string) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(ts) FROM candles WHERE exchange = ? AND symbol = ? AND timeframe = ?`,
		inst.Exchange, inst.Symbol, timeframe,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
