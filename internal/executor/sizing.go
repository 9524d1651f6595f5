package executor

import (
	"moneyagent/internal/exchange"
	"moneyagent/internal/pkg/symbol"

	"github.com/shopspring/decimal"
)

// Safety margin applied on top of the required entry margin, and the share
// of free balance usable when scaling a too-large request down.
const (
	marginBufferRatio = 1.05
	scaleDownRatio    = 0.95
)

// fallbackMinimums covers symbols for which the exchange reports no lot
// limits. Unlisted coins default to 0.1.
var fallbackMinimums = map[string]float64{
	"BTC":  0.0001,
	"ETH":  0.001,
	"SOL":  0.1,
	"LTC":  0.01,
	"SUI":  0.1,
	"BGB":  1,
	"DOGE": 1,
}

const (
	fallbackMinimumDefault = 0.1
	fallbackQtyPrecision   = 3
)

func fallbackLimits(coin string) exchange.MarketLimits {
	min, ok := fallbackMinimums[symbol.Normalize(coin)]
	if !ok {
		min = fallbackMinimumDefault
	}
	return exchange.MarketLimits{MinQuantity: min, QtyPrecision: fallbackQtyPrecision}
}

// floorQuantity snaps a quantity down onto the exchange grid: first to the
// lot step, then to the quantity precision. Decimal arithmetic keeps
// 0.1-step symbols from drifting off-grid through float rounding.
func floorQuantity(qty float64, limits exchange.MarketLimits) float64 {
	d := decimal.NewFromFloat(qty)
	if limits.StepSize > 0 {
		step := decimal.NewFromFloat(limits.StepSize)
		d = d.Div(step).Floor().Mul(step)
	}
	if limits.QtyPrecision >= 0 {
		d = d.RoundDown(int32(limits.QtyPrecision))
	}
	f, _ := d.Float64()
	if f < 0 {
		return 0
	}
	return f
}

// maxAffordableQuantity is the largest position size the free balance
// supports at the given leverage, keeping 5% of the balance in reserve.
func maxAffordableQuantity(available, price float64, leverage int) float64 {
	if price <= 0 || leverage < 1 {
		return 0
	}
	return available * scaleDownRatio * float64(leverage) / price
}

// requiredMargin is the margin an entry consumes before the safety buffer.
func requiredMargin(qty, price float64, leverage int) float64 {
	if leverage < 1 {
		leverage = 1
	}
	return qty * price / float64(leverage)
}
