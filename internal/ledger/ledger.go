// Package ledger keeps the in-session trade history the risk gate and the
// performance metrics read from.
package ledger

import "time"

// Trade is one executed (non-hold) action. PnL stays nil until the outcome
// is resolved; only resolved trades count toward the loss streak.
type Trade struct {
	Cycle         int
	Time          time.Time
	Signal        string
	Coin          string
	Side          string
	Quantity      float64
	Price         float64
	Leverage      int
	Confidence    float64
	Justification string
	AccountValue  float64
	PnL           *float64
}

type Ledger struct {
	trades []Trade
}

func New() *Ledger { return &Ledger{} }

func (l *Ledger) Append(t Trade) {
	l.trades = append(l.trades, t)
}

func (l *Ledger) Len() int { return len(l.trades) }

// Trades returns a copy of the full history, oldest first.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// ResolveLast attaches a PnL outcome to the most recent trade for the coin
// that has none yet. Returns false when no such trade exists.
func (l *Ledger) ResolveLast(coin string, pnl float64) bool {
	for i := len(l.trades) - 1; i >= 0; i-- {
		if l.trades[i].Coin == coin && l.trades[i].PnL == nil {
			v := pnl
			l.trades[i].PnL = &v
			return true
		}
	}
	return false
}

// LossStreak reports whether the most recent n resolved trades were all
// losses. Fewer than n resolved trades never counts as a streak.
func LossStreak(trades []Trade, n int) bool {
	if n <= 0 {
		return false
	}
	seen := 0
	for i := len(trades) - 1; i >= 0 && seen < n; i-- {
		if trades[i].PnL == nil {
			continue
		}
		if *trades[i].PnL >= 0 {
			return false
		}
		seen++
	}
	return seen == n
}

// AccountValues returns the per-trade account values in order, for the
// cycle-over-cycle return series behind the Sharpe computation.
func AccountValues(trades []Trade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.AccountValue > 0 {
			out = append(out, t.AccountValue)
		}
	}
	return out
}
