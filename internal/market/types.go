// Package market gathers multi-timeframe exchange data per symbol and
// derives the indicator and regime views the decision stage consumes.
package market

import "moneyagent/internal/exchange"

// Timeframes used throughout the pipeline. The fast series keeps short
// recent-history tails for the oracle prompt, the slow one anchors trend
// and regime analysis.
const (
	FastInterval = "3m"
	SlowInterval = "4h"

	DefaultCandleLimit = 100
)

// IndicatorValue is one computed indicator: the latest valid reading plus a
// bounded recent history, oldest first. A nil *IndicatorValue anywhere means
// the indicator was unavailable, never a silent zero.
type IndicatorValue struct {
	Latest float64
	Series []float64
}

type MACDValue struct {
	Line       float64
	Signal     float64
	Histogram  float64
	HistSeries []float64
}

// IndicatorSet holds the indicators derived from exactly one candle series.
type IndicatorSet struct {
	EMA20 *IndicatorValue
	EMA50 *IndicatorValue
	MACD  *MACDValue
	RSI7  *IndicatorValue
	RSI14 *IndicatorValue
	ATR3  *IndicatorValue
	ATR14 *IndicatorValue
}

// Snapshot is the per-cycle market bundle for one symbol. OK=false means the
// symbol is excluded from trading this cycle; Err carries the reason.
type Snapshot struct {
	Coin string
	Pair string

	OK  bool
	Err string

	Ticker       exchange.Ticker
	CurrentPrice float64
	FundingRate  float64
	OpenInterest float64

	Candles    map[string][]exchange.Candle
	Indicators map[string]IndicatorSet
}

// Price returns the freshest usable price for the symbol.
func (s Snapshot) Price() float64 {
	if s.CurrentPrice > 0 {
		return s.CurrentPrice
	}
	return s.Ticker.Last
}
