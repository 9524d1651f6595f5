package market

import (
	"math"
	"testing"

	"moneyagent/internal/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticCandles(n int, start, step float64) []exchange.Candle {
	out := make([]exchange.Candle, n)
	for i := 0; i < n; i++ {
		close := start + float64(i)*step
		out[i] = exchange.Candle{
			OpenTime:  int64(i) * 180_000,
			CloseTime: int64(i+1) * 180_000,
			Open:      close - step,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    1000,
		}
	}
	return out
}

func TestComputeIndicatorsFullHistory(t *testing.T) {
	set := ComputeIndicators(syntheticCandles(100, 100, 0.5))

	require.NotNil(t, set.EMA20)
	require.NotNil(t, set.EMA50)
	require.NotNil(t, set.MACD)
	require.NotNil(t, set.RSI7)
	require.NotNil(t, set.RSI14)
	require.NotNil(t, set.ATR3)
	require.NotNil(t, set.ATR14)

	// Rising closes keep the fast EMA above the slow one and MACD positive.
	assert.Greater(t, set.EMA20.Latest, set.EMA50.Latest)
	assert.Greater(t, set.MACD.Line, 0.0)
	assert.InDelta(t, 100.0, set.RSI14.Latest, 0.01)
	assert.LessOrEqual(t, len(set.RSI7.Series), seriesTail)

	for _, v := range set.EMA20.Series {
		assert.False(t, math.IsNaN(v))
	}
}

func TestComputeIndicatorsShortHistory(t *testing.T) {
	set := ComputeIndicators(syntheticCandles(10, 100, 0.5))

	assert.Nil(t, set.EMA20)
	assert.Nil(t, set.EMA50)
	assert.Nil(t, set.MACD)
	assert.Nil(t, set.RSI14)
	assert.Nil(t, set.ATR14)
	// Short-period indicators still compute from ten candles.
	require.NotNil(t, set.RSI7)
	require.NotNil(t, set.ATR3)
	assert.Greater(t, set.ATR3.Latest, 0.0)
}

func TestComputeIndicatorsEmpty(t *testing.T) {
	set := ComputeIndicators(nil)
	assert.Nil(t, set.EMA20)
	assert.Nil(t, set.MACD)
	assert.Nil(t, set.RSI7)
	assert.Nil(t, set.ATR3)
}
