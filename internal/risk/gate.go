// Package risk is the pure decision-gating chain between the oracle and the
// execution engine. Every filter can only downgrade a decision toward hold
// or clear entry fields, never upgrade one.
package risk

import (
	"fmt"
	"strings"

	"moneyagent/internal/decision"
	"moneyagent/internal/ledger"
	"moneyagent/internal/logger"
	"moneyagent/internal/market"
)

const (
	// Confidence needed to enter against the 4h trend.
	counterTrendConfidence = 0.70
	// Resolved losing trades in a row that freeze new activity.
	lossStreakWindow = 3

	rsiOversold = 30.0
)

// Input bundles the cycle context the gate evaluates against. It performs
// no I/O; everything it needs is handed in.
type Input struct {
	Snapshots   []market.Snapshot
	TrendByCoin map[string]string
	Trades      []ledger.Trade
	ActiveCoins []string
}

// Gate runs the ordered filter chain over a raw decision and returns the
// final decision plus the audit log of every check that fired.
func Gate(d decision.Decision, in Input) (decision.Decision, []string) {
	var log []string
	note := func(format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		log = append(log, line)
		logger.Warnf("risk: %s", line)
	}

	d = normalizeShape(d, note)
	if d.Signal == decision.SignalHold {
		return d, log
	}
	d = checkTrendConsistency(d, in, note)
	d = checkActiveSymbols(d, in.ActiveCoins, note)
	d = checkLossStreak(d, in.Trades, note)
	return d, log
}

// reject overwrites the decision into a safe hold while keeping the audit
// trail on the justification, so the requested action stays derivable.
func reject(d decision.Decision, note func(string, ...any), format string, args ...any) decision.Decision {
	reason := fmt.Sprintf(format, args...)
	note("rejected %s on %s: %s", d.Signal, orDash(d.Coin), reason)
	d.Annotate("[risk] %s (was %s %s)", reason, d.Signal, orDash(d.Coin))
	d.Signal = decision.SignalHold
	d.Coin = ""
	d.Quantity = 0
	d.Leverage = 1
	d.TakeProfitPrice = 0
	d.StopLossPrice = 0
	return d
}

// normalizeShape enforces the per-signal field invariants before any policy
// runs. Malformed entries degrade to hold instead of erroring.
func normalizeShape(d decision.Decision, note func(string, ...any)) decision.Decision {
	switch d.Signal {
	case decision.SignalHold:
		if d.Quantity != 0 || d.Leverage != 1 {
			note("normalized hold decision shape (quantity=%v leverage=%d)", d.Quantity, d.Leverage)
		}
		d.Coin = ""
		d.Quantity = 0
		d.Leverage = 1
		d.TakeProfitPrice = 0
		d.StopLossPrice = 0
	case decision.SignalClose:
		d.TakeProfitPrice = 0
		d.StopLossPrice = 0
		d.Quantity = 0
		if d.Coin == "" {
			d = reject(d, note, "close signal without a coin")
		}
	case decision.SignalBuyToEnter, decision.SignalSellToEnter:
		switch {
		case d.Coin == "":
			d = reject(d, note, "entry signal without a coin")
		case d.Quantity <= 0:
			d = reject(d, note, "entry quantity must be positive, got %v", d.Quantity)
		case d.StopLossPrice <= 0 || d.TakeProfitPrice <= 0:
			d = reject(d, note, "entry lacks bracket prices (sl=%v tp=%v)", d.StopLossPrice, d.TakeProfitPrice)
		}
		if d.Leverage < 1 {
			d.Leverage = 1
		}
	default:
		d = reject(d, note, "unknown signal %q", d.Signal)
	}
	return d
}

// checkTrendConsistency blocks low-conviction entries against the 4h trend
// and records an RSI-oversold advisory for counter-trend longs.
func checkTrendConsistency(d decision.Decision, in Input, note func(string, ...any)) decision.Decision {
	if !d.IsEntry() {
		return d
	}
	trend, ok := in.TrendByCoin[d.Coin]
	if !ok || trend == market.TrendNeutral {
		return d
	}
	against := (trend == market.TrendDown && d.Signal == decision.SignalBuyToEnter) ||
		(trend == market.TrendUp && d.Signal == decision.SignalSellToEnter)
	if !against {
		return d
	}
	if d.Confidence < counterTrendConfidence {
		return reject(d, note, "%s against 4h %s trend with confidence %.2f < %.2f",
			d.Signal, trend, d.Confidence, counterTrendConfidence)
	}
	note("counter-trend override: %s on %s against 4h %s trend allowed (confidence %.2f)",
		d.Signal, d.Coin, trend, d.Confidence)

	if trend == market.TrendDown && d.Signal == decision.SignalBuyToEnter {
		if rsi := fastRSI7(in.Snapshots, d.Coin); rsi != nil && *rsi < rsiOversold {
			note("advisory: RSI(7) %.1f oversold in a downtrend on %s, better to wait for MACD to turn or price to reclaim EMA20",
				*rsi, d.Coin)
		}
	}
	return d
}

func checkActiveSymbols(d decision.Decision, active []string, note func(string, ...any)) decision.Decision {
	if !d.IsEntry() {
		// Closing an existing position is always allowed.
		return d
	}
	for _, coin := range active {
		if strings.EqualFold(coin, d.Coin) {
			return d
		}
	}
	return reject(d, note, "%s is outside the active symbol set [%s]", d.Coin, strings.Join(active, ", "))
}

func checkLossStreak(d decision.Decision, trades []ledger.Trade, note func(string, ...any)) decision.Decision {
	if d.Signal == decision.SignalHold {
		return d
	}
	if ledger.LossStreak(trades, lossStreakWindow) {
		return reject(d, note, "last %d resolved trades were all losses, observation mode this cycle", lossStreakWindow)
	}
	return d
}

func fastRSI7(snapshots []market.Snapshot, coin string) *float64 {
	for _, s := range snapshots {
		if s.Coin != coin || !s.OK {
			continue
		}
		if set, ok := s.Indicators[market.FastInterval]; ok && set.RSI7 != nil {
			return &set.RSI7.Latest
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
