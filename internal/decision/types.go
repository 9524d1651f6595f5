// Package decision defines the oracle output contract and the machinery
// that turns a raw model reply into a typed, schema-checked Decision.
package decision

import (
	"fmt"
	"strings"

	"moneyagent/internal/exchange"
)

// Trading signals as they appear on the wire.
const (
	SignalBuyToEnter  = "buy_to_enter"
	SignalSellToEnter = "sell_to_enter"
	SignalHold        = "hold"
	SignalClose       = "close"
)

// Decision is the oracle's proposed action for one cycle.
type Decision struct {
	Signal                string  `json:"signal"`
	Coin                  string  `json:"coin"`
	Quantity              float64 `json:"quantity"`
	Leverage              int     `json:"leverage"`
	TakeProfitPrice       float64 `json:"take_profit_price"`
	StopLossPrice         float64 `json:"stop_loss_price"`
	InvalidationCondition string  `json:"invalidation_condition"`
	Confidence            float64 `json:"confidence"`
	RiskUSD               float64 `json:"risk_usd"`
	Justification         string  `json:"justification"`
}

func (d Decision) IsEntry() bool {
	return d.Signal == SignalBuyToEnter || d.Signal == SignalSellToEnter
}

// Direction maps an entry signal to a position side; empty otherwise.
func (d Decision) Direction() string {
	switch d.Signal {
	case SignalBuyToEnter:
		return exchange.PositionLong
	case SignalSellToEnter:
		return exchange.PositionShort
	default:
		return ""
	}
}

// Hold builds the safe default decision with the given reason.
func Hold(reason string) Decision {
	return Decision{
		Signal:                SignalHold,
		Leverage:              1,
		InvalidationCondition: "N/A",
		Justification:         reason,
	}
}

// Annotate appends an audit note to the justification so every downgrade
// stays readable on the decision itself, not only in the log.
func (d *Decision) Annotate(format string, args ...any) {
	note := fmt.Sprintf(format, args...)
	if strings.TrimSpace(d.Justification) == "" {
		d.Justification = note
		return
	}
	d.Justification = d.Justification + " | " + note
}

func ValidSignal(signal string) bool {
	switch signal {
	case SignalBuyToEnter, SignalSellToEnter, SignalHold, SignalClose:
		return true
	}
	return false
}
