package sim

import (
	"context"
	"reflect"
	"testing"
	"time"

	"autotradev1/internal/model"
)

var fixedNow = time.Date(2026, time.January, 6, 10, 30, 0, 0, time.UTC)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(100, 1000, 7, fixedNow)
	b := Generate(100, 1000, 7, fixedNow)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different series")
	}
	c := Generate(100, 1000, 8, fixedNow)
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical series")
	}
}

func TestGenerateShape(t *testing.T) {
	candles := Generate(50, 1000, 1, fixedNow)
	if len(candles) != 50 {
		t.Fatalf("count: got %d, want 50", len(candles))
	}
	if last := candles[49].Time; last != fixedNow.Unix() {
		t.Errorf("last bar time: got %d, want %d", last, fixedNow.Unix())
	}
	for i, c := range candles {
		if c.High < c.Open || c.High < c.Close {
			t.Errorf("bar %d: high %v below body", i, c.High)
		}
		if c.Low > c.Open || c.Low > c.Close {
			t.Errorf("bar %d: low %v above body", i, c.Low)
		}
		if c.Volume < 10000 {
			t.Errorf("bar %d: volume %d below floor", i, c.Volume)
		}
		if i > 0 && c.Time-candles[i-1].Time != barSeconds {
			t.Errorf("bar %d: spacing %d, want %d", i, c.Time-candles[i-1].Time, barSeconds)
		}
	}
}

func TestSourcePerInstrumentWalks(t *testing.T) {
	src := New(42, 1000, func() time.Time { return fixedNow })
	ctx := context.Background()
	rel := model.Instrument{Exchange: "NSE", Symbol: "RELIANCE", Token: "2885"}
	tcs := model.Instrument{Exchange: "NSE", Symbol: "TCS", Token: "11536"}

	a, err := src.GetCandles(ctx, rel, "FIVE_MINUTE", 100)
	if err != nil {
		t.Fatal(err)
	}
	b, err := src.GetCandles(ctx, tcs, "FIVE_MINUTE", 100)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a, b) {
		t.Error("different instruments share the same walk")
	}

	// repeat fetches serve the cached walk unchanged
	a2, _ := src.GetCandles(ctx, rel, "FIVE_MINUTE", 100)
	if !reflect.DeepEqual(a, a2) {
		t.Error("repeat fetch changed the series")
	}
}

func TestSourceLTPMatchesLatestBar(t *testing.T) {
	src := New(42, 1000, func() time.Time { return fixedNow })
	ctx := context.Background()
	inst := model.Instrument{Exchange: "NSE", Symbol: "RELIANCE", Token: "2885"}

	candles, err := src.GetCandles(ctx, inst, "FIVE_MINUTE", 100)
	if err != nil {
		t.Fatal(err)
	}
	ltp, err := src.LTP(ctx, inst)
	if err != nil {
		t.Fatal(err)
	}
	if ltp != candles[len(candles)-1].Close {
		t.Errorf("LTP %v != latest close %v", ltp, candles[len(candles)-1].Close)
	}
}
