package market

import (
	"moneyagent/internal/logger"
)

// Regime labels. InsufficientData is returned when no symbol produced the
// 4h indicators the classifier needs.
const (
	RegimeInsufficientData = "insufficient data"

	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Fixed classification thresholds, in percent.
const (
	highVolatilityPct = 2.0
	lowVolatilityPct  = 0.8
	strongTrendPct    = 1.5
	weakTrendPct      = 0.5
)

type Regime struct {
	Label            string
	VolatilityPct    float64
	TrendStrengthPct float64
	// TrendByCoin holds the per-symbol trend direction, neutral when the
	// symbol lacks usable 4h data.
	TrendByCoin map[string]string
}

// ClassifyRegime reduces the cycle's snapshots into a single qualitative
// regime label plus per-symbol trend directions. Volatility is ATR14/price,
// trend strength averages the EMA20-EMA50 gap with the MACD magnitude, both
// normalized to percent and averaged across symbols with usable data.
func ClassifyRegime(snapshots []Snapshot) Regime {
	regime := Regime{
		Label:       RegimeInsufficientData,
		TrendByCoin: make(map[string]string, len(snapshots)),
	}
	var volSum, trendSum float64
	var samples int
	for _, snap := range snapshots {
		regime.TrendByCoin[snap.Coin] = TrendNeutral
		if !snap.OK {
			continue
		}
		slow, ok := snap.Indicators[SlowInterval]
		if !ok {
			continue
		}
		price := snap.Price()
		regime.TrendByCoin[snap.Coin] = trendDirection(slow)
		if price <= 0 || slow.ATR14 == nil || slow.EMA20 == nil || slow.EMA50 == nil || slow.MACD == nil {
			continue
		}
		volSum += slow.ATR14.Latest / price * 100

		emaGap := 0.0
		if slow.EMA50.Latest > 0 {
			emaGap = abs(slow.EMA20.Latest-slow.EMA50.Latest) / slow.EMA50.Latest * 100
		}
		macdStrength := abs(slow.MACD.Line) / price * 100
		trendSum += (emaGap + macdStrength) / 2
		samples++
	}
	if samples == 0 {
		return regime
	}
	regime.VolatilityPct = volSum / float64(samples)
	regime.TrendStrengthPct = trendSum / float64(samples)
	regime.Label = regimeLabel(regime.VolatilityPct, regime.TrendStrengthPct)
	logger.Infof("market regime: %s (volatility %.2f%%, trend strength %.2f%%)",
		regime.Label, regime.VolatilityPct, regime.TrendStrengthPct)
	return regime
}

func regimeLabel(volatility, trend float64) string {
	switch {
	case volatility > highVolatilityPct:
		if trend > strongTrendPct {
			return "high-volatility trending"
		}
		return "high-volatility ranging"
	case volatility < lowVolatilityPct:
		if trend > strongTrendPct {
			return "low-volatility trending"
		}
		return "low-volatility ranging"
	default:
		if trend > strongTrendPct {
			return "medium-volatility trending"
		}
		if trend < weakTrendPct {
			return "medium-volatility ranging"
		}
		return "medium-volatility choppy"
	}
}

// trendDirection requires EMA ordering and MACD sign to agree; a lone cross
// or sign flip stays neutral.
func trendDirection(set IndicatorSet) string {
	if set.EMA20 == nil || set.EMA50 == nil || set.MACD == nil {
		return TrendNeutral
	}
	switch {
	case set.EMA20.Latest > set.EMA50.Latest && set.MACD.Line > 0:
		return TrendUp
	case set.EMA20.Latest < set.EMA50.Latest && set.MACD.Line < 0:
		return TrendDown
	default:
		return TrendNeutral
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
