// Package pattern detects candlestick reversal and continuation patterns
// over the last three candles of a history. The scan is deliberately
// local: only the trailing 2-3 candles are inspected, and every match
// found is returned (no precedence between patterns).
package pattern

import "autotradev1/internal/model"

// Match is one detected candlestick pattern with its directional bias
// and a fixed reliability weight from 1 (weak) to 5 (strong).
type Match struct {
	Name        string          `json:"name"`
	Direction   model.Direction `json:"direction"`
	Reliability int             `json:"reliability"`
}

// Detect inspects the last three candles of the history and returns all
// matching patterns. Fewer than three candles yields an empty result,
// never an error.
func Detect(candles []model.Candle) []Match {
	if len(candles) < 3 {
		return nil
	}
	n := len(candles)
	c1 := candles[n-3] // oldest of the three
	c2 := candles[n-2]
	cur := candles[n-1]

	var matches []Match
	add := func(name string, dir model.Direction, reliability int) {
		matches = append(matches, Match{Name: name, Direction: dir, Reliability: reliability})
	}

	body := cur.Body()
	rng := cur.Range()

	// Doji: negligible body, biased against the prior candle's move.
	if rng > 0 && body/rng < 0.10 {
		dir := model.Buy
		if c2.Bullish() {
			dir = model.Sell
		}
		add("Doji", dir, 3)
	}

	// Hammer / Shooting Star: long single wick after a directional candle.
	if cur.LowerWick() > 2*body && cur.UpperWick() < 0.5*body && c2.Bearish() {
		add("Hammer", model.Buy, 4)
	}
	if cur.UpperWick() > 2*body && cur.LowerWick() < 0.5*body && c2.Bullish() {
		add("Shooting Star", model.Sell, 4)
	}

	// Engulfing: current body swallows the prior body.
	if c2.Bearish() && cur.Bullish() && cur.Open <= c2.Close && cur.Close >= c2.Open && body > c2.Body() {
		add("Bullish Engulfing", model.Buy, 5)
	}
	if c2.Bullish() && cur.Bearish() && cur.Open >= c2.Close && cur.Close <= c2.Open && body > c2.Body() {
		add("Bearish Engulfing", model.Sell, 5)
	}

	// Morning / Evening Star: three-candle reversal through a small body.
	if c1.Bearish() && c2.Body() < c1.Body()*0.3 && cur.Bullish() && cur.Close > (c1.Open+c1.Close)/2 {
		add("Morning Star", model.Buy, 5)
	}
	if c1.Bullish() && c2.Body() < c1.Body()*0.3 && cur.Bearish() && cur.Close < (c1.Open+c1.Close)/2 {
		add("Evening Star", model.Sell, 5)
	}

	// Three soldiers / crows: three directional candles stepping one way.
	if c1.Bullish() && c2.Bullish() && cur.Bullish() && c2.Close > c1.Close && cur.Close > c2.Close {
		add("Three White Soldiers", model.Buy, 4)
	}
	if c1.Bearish() && c2.Bearish() && cur.Bearish() && c2.Close < c1.Close && cur.Close < c2.Close {
		add("Three Black Crows", model.Sell, 4)
	}

	// Marubozu: negligible wicks on both sides.
	if rng > 0 && body > 0 && cur.UpperWick() < rng*0.05 && cur.LowerWick() < rng*0.05 {
		dir := model.Buy
		if cur.Bearish() {
			dir = model.Sell
		}
		add("Marubozu", dir, 3)
	}

	return matches
}
