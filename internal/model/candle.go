package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV bar for a single instrument.
// Time is the bucket start in epoch seconds; prices are in rupees.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// TS returns the candle's bucket start as a time.Time (UTC).
func (c *Candle) TS() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// Bullish reports whether the candle closed above its open.
func (c *Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c *Candle) Bearish() bool { return c.Close < c.Open }

// Body returns the absolute open-to-close distance.
func (c *Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low distance.
func (c *Candle) Range() float64 { return c.High - c.Low }

// UpperWick returns the distance from the body top to the high.
func (c *Candle) UpperWick() float64 {
	if c.Close >= c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

// LowerWick returns the distance from the low to the body bottom.
func (c *Candle) LowerWick() float64 {
	if c.Close >= c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
