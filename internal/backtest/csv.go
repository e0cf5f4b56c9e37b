package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"autotradev1/internal/model"
)

// LoadCSV reads candles from a CSV file with columns
// time,open,high,low,close,volume. The time column accepts a unix
// epoch in seconds or an RFC3339 timestamp. A header row is skipped
// when the first field is not numeric.
func LoadCSV(path string) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses candle rows from r. See LoadCSV for the format.
func ReadCSV(r io.Reader) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	var candles []model.Candle
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("backtest: csv line %d: %w", line+1, err)
		}
		line++
		if len(rec) < 6 {
			return nil, fmt.Errorf("backtest: csv line %d: want 6 columns, got %d", line, len(rec))
		}

		ts, err := parseTime(rec[0])
		if err != nil {
			if line == 1 { // header row
				continue
			}
			return nil, fmt.Errorf("backtest: csv line %d: bad time %q", line, rec[0])
		}

		var vals [4]float64
		for j := 1; j <= 4; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("backtest: csv line %d column %d: %w", line, j+1, err)
			}
			vals[j-1] = v
		}
		vol, err := strconv.ParseInt(strings.TrimSpace(rec[5]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("backtest: csv line %d volume: %w", line, err)
		}

		candles = append(candles, model.Candle{
			Time:   ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vol,
		})
	}
	return candles, nil
}

func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epoch, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
