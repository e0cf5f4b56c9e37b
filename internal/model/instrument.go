package model

import "strings"

// Instrument identifies one tradable scrip on an exchange.
// Token is the broker's numeric symbol token (Angel One SmartAPI).
type Instrument struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"` // NSE, BSE, NFO
	Token    string `json:"token"`
}

// Key returns a unique key for this instrument: "exchange:symbol".
func (i Instrument) Key() string {
	return i.Exchange + ":" + i.Symbol
}

// ParseInstrument parses "EXCHANGE:SYMBOL:TOKEN" (token optional).
// Returns the zero Instrument if s has no symbol part.
func ParseInstrument(s string) Instrument {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 2:
		return Instrument{Exchange: parts[0], Symbol: parts[1]}
	case 3:
		return Instrument{Exchange: parts[0], Symbol: parts[1], Token: parts[2]}
	}
	return Instrument{}
}
