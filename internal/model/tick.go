package model

import "time"

// Tick is one last-traded-price update from the market feed.
type Tick struct {
	Token    string    `json:"token"`
	Exchange string    `json:"exchange"`
	LTP      float64   `json:"ltp"`
	TS       time.Time `json:"ts"`
}

// Key returns a unique key for this tick's instrument: "exchange:token".
func (t *Tick) Key() string {
	return t.Exchange + ":" + t.Token
}
