package market

import (
	"math"

	"moneyagent/internal/exchange"

	talib "github.com/markcheno/go-talib"
)

const seriesTail = 10

// ComputeIndicators derives the standard indicator set from one candle
// series. Each indicator needs at least one valid post-warmup value;
// otherwise it stays nil. NaN and Inf outputs are dropped, never forwarded.
func ComputeIndicators(candles []exchange.Candle) IndicatorSet {
	set := IndicatorSet{}
	n := len(candles)
	if n == 0 {
		return set
	}
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	if n >= 20 {
		set.EMA20 = indicatorFrom(talib.Ema(closes, 20), 20)
	}
	if n >= 50 {
		set.EMA50 = indicatorFrom(talib.Ema(closes, 50), 50)
	}
	if n >= 34 {
		line, signal, hist := talib.Macd(closes, 12, 26, 9)
		set.MACD = macdFrom(line, signal, hist)
	}
	if n > 7 {
		set.RSI7 = indicatorFrom(talib.Rsi(closes, 7), 7)
	}
	if n > 14 {
		set.RSI14 = indicatorFrom(talib.Rsi(closes, 14), 14)
	}
	if n > 3 {
		set.ATR3 = indicatorFrom(talib.Atr(highs, lows, closes, 3), 3)
	}
	if n > 14 {
		set.ATR14 = indicatorFrom(talib.Atr(highs, lows, closes, 14), 14)
	}
	return set
}

// indicatorFrom trims the warmup prefix, drops non-finite values and keeps a
// bounded tail as the recent history.
func indicatorFrom(series []float64, warmup int) *IndicatorValue {
	if warmup < 0 {
		warmup = 0
	}
	if warmup > len(series) {
		warmup = len(series)
	}
	valid := make([]float64, 0, len(series)-warmup)
	for _, v := range series[warmup:] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		return nil
	}
	return &IndicatorValue{
		Latest: valid[len(valid)-1],
		Series: tail(valid, seriesTail),
	}
}

func macdFrom(line, signal, hist []float64) *MACDValue {
	l := lastFinite(line)
	s := lastFinite(signal)
	h := lastFinite(hist)
	if l == nil || s == nil || h == nil {
		return nil
	}
	histValid := make([]float64, 0, len(hist))
	for _, v := range hist {
		if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
			continue
		}
		histValid = append(histValid, v)
	}
	return &MACDValue{
		Line:       *l,
		Signal:     *s,
		Histogram:  *h,
		HistSeries: tail(histValid, seriesTail),
	}
}

func lastFinite(series []float64) *float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return &v
		}
	}
	return nil
}

func tail(series []float64, n int) []float64 {
	if len(series) <= n {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}
	out := make([]float64, n)
	copy(out, series[len(series)-n:])
	return out
}
