package agent

import (
	"math"

	"moneyagent/internal/ledger"
)

// Metrics are the cumulative session performance numbers fed back into the
// oracle prompt and the final summary.
type Metrics struct {
	ReturnPct   float64
	SharpeRatio float64
}

// computeMetrics derives return% from the initial capture and a simplified
// Sharpe from the trade-over-trade account-value returns. With fewer than
// two trades it degrades to a linear proxy of the return, kept for
// behavioral parity with earlier sessions; it is not a meaningful statistic
// at that sample size.
func computeMetrics(initialValue, accountValue float64, trades []ledger.Trade) Metrics {
	var m Metrics
	if initialValue > 0 {
		m.ReturnPct = (accountValue - initialValue) / initialValue * 100
	}

	values := ledger.AccountValues(trades)
	if len(values) >= 2 {
		m.SharpeRatio = sharpeFromValues(values)
		return m
	}
	if m.ReturnPct > 0 {
		m.SharpeRatio = m.ReturnPct / 10
	} else {
		m.SharpeRatio = m.ReturnPct / 20
	}
	return m
}

// sharpeFromValues is mean/stddev of the consecutive returns, with a zero
// risk-free rate. Population standard deviation, matching how the metric
// was defined originally.
func sharpeFromValues(values []float64) float64 {
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			returns = append(returns, (values[i]-values[i-1])/values[i-1])
		}
	}
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std
}
