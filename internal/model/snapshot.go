package model

// Trend labels the directional classifier output.
type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
)

// MACDValue holds the trend/momentum indicator triple.
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValue holds the volatility band set.
// Width is the band spread as a percentage of the middle band.
// PercentB is the close's normalized position between the bands
// (0.5 when the bands coincide).
type BollingerValue struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Width    float64 `json:"width"`
	PercentB float64 `json:"percent_b"`
}

// StochasticValue holds the %K/%D oscillator pair.
type StochasticValue struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// SupertrendValue holds the trend classifier band value and label.
type SupertrendValue struct {
	Value float64 `json:"value"`
	Trend Trend   `json:"trend"`
}

// IndicatorSnapshot is the full indicator battery computed from one
// candle history. All fields are finite: indicators degrade to neutral
// or last-close fallbacks when the history is shorter than their period.
type IndicatorSnapshot struct {
	SMA20  float64 `json:"sma20"`
	SMA50  float64 `json:"sma50"`
	SMA200 float64 `json:"sma200"`

	EMA9  float64 `json:"ema9"`
	EMA21 float64 `json:"ema21"`
	EMA50 float64 `json:"ema50"`

	RSI14 float64 `json:"rsi14"`

	MACD       MACDValue       `json:"macd"`
	Bollinger  BollingerValue  `json:"bollinger"`
	Stochastic StochasticValue `json:"stochastic"`
	Supertrend SupertrendValue `json:"supertrend"`

	ADX       float64 `json:"adx"`
	ATR       float64 `json:"atr"`
	VWAP      float64 `json:"vwap"`
	OBV       float64 `json:"obv"`
	WilliamsR float64 `json:"williams_r"`
	CCI       float64 `json:"cci"`

	CurrentPrice float64 `json:"current_price"`
	VolumeRatio  float64 `json:"volume_ratio"`
}
