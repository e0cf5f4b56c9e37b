package sqlite

import (
	"path/filepath"
	"testing"

	"autotradev1/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "candles.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCandles(n int, startTS int64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		price := 100.0 + float64(i)
		out[i] = model.Candle{
			Time:   startTS + int64(i)*300,
			Open:   price,
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price + 0.25,
			Volume: 50000,
		}
	}
	return out
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	inst := model.Instrument{Exchange: "NSE", Symbol: "RELIANCE", Token: "2885"}

	want := testCandles(10, 1_700_000_000)
	if err := s.SaveCandles(inst, "FIVE_MINUTE", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadCandles(inst, "FIVE_MINUTE", 0, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d candles, got %d", len(want), len(got))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("candle %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadRangeBounds(t *testing.T) {
	s := openTestStore(t)
	inst := model.Instrument{Exchange: "NSE", Symbol: "TCS", Token: "11536"}

	all := testCandles(10, 1000)
	if err := s.SaveCandles(inst, "FIVE_MINUTE", all); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Bars 3..6 inclusive.
	got, err := s.LoadCandles(inst, "FIVE_MINUTE", all[3].Time, all[6].Time)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 candles in range, got %d", len(got))
	}
	if got[0].Time != all[3].Time || got[3].Time != all[6].Time {
		t.Errorf("range edges wrong: first %d last %d", got[0].Time, got[3].Time)
	}
}

func TestSaveUpsertsDuplicates(t *testing.T) {
	s := openTestStore(t)
	inst := model.Instrument{Exchange: "NSE", Symbol: "INFY", Token: "1594"}

	first := testCandles(5, 2000)
	if err := s.SaveCandles(inst, "FIVE_MINUTE", first); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Re-archive an overlapping window with a revised last bar.
	revised := testCandles(5, 2000)
	revised[4].Close = 999
	if err := s.SaveCandles(inst, "FIVE_MINUTE", revised); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, err := s.LoadCandles(inst, "FIVE_MINUTE", 0, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("upsert duplicated rows: got %d candles", len(got))
	}
	if got[4].Close != 999 {
		t.Errorf("expected revised close 999, got %v", got[4].Close)
	}
}

func TestCandlesIsolatedByInstrumentAndTimeframe(t *testing.T) {
	s := openTestStore(t)
	a := model.Instrument{Exchange: "NSE", Symbol: "RELIANCE", Token: "2885"}
	b := model.Instrument{Exchange: "NSE", Symbol: "TCS", Token: "11536"}

	if err := s.SaveCandles(a, "FIVE_MINUTE", testCandles(3, 100)); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := s.SaveCandles(a, "ONE_DAY", testCandles(2, 100)); err != nil {
		t.Fatalf("save a daily: %v", err)
	}

	got, err := s.LoadCandles(b, "FIVE_MINUTE", 0, 0)
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candles for other instrument, got %d", len(got))
	}

	got, err = s.LoadCandles(a, "FIVE_MINUTE", 0, 0)
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("timeframe bleed: expected 3 five-minute candles, got %d", len(got))
	}
}

func TestLastTimestamp(t *testing.T) {
	s := openTestStore(t)
	inst := model.Instrument{Exchange: "NSE", Symbol: "SBIN", Token: "3045"}

	ts, err := s.LastTimestamp(inst, "FIVE_MINUTE")
	if err != nil {
		t.Fatalf("empty archive: %v", err)
	}
	if ts != 0 {
		t.Errorf("expected 0 for empty archive, got %d", ts)
	}

	candles := testCandles(4, 5000)
	if err := s.SaveCandles(inst, "FIVE_MINUTE", candles); err != nil {
		t.Fatalf("save: %v", err)
	}
	ts, err = s.LastTimestamp(inst, "FIVE_MINUTE")
	if err != nil {
		t.Fatalf("last timestamp: %v", err)
	}
	if ts != candles[3].Time {
		t.Errorf("expected %d, got %d", candles[3].Time, ts)
	}
}

func TestSaveEmptyBatchIsNoop(t *testing.T) {
	s := openTestStore(t)
	inst := model.Instrument{Exchange: "NSE", Symbol: "RELIANCE", Token: "2885"}
	if err := s.SaveCandles(inst, "FIVE_MINUTE", nil); err != nil {
		t.Fatalf("empty save should succeed: %v", err)
	}
}
