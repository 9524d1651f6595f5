package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validEntryReply = "```json\n" + `{
  "signal": "buy_to_enter",
  "coin": "btc",
  "quantity": 0.1,
  "leverage": 5,
  "take_profit_price": 105000.0,
  "stop_loss_price": 95000.0,
  "invalidation_condition": "BTC breaks below $95,000 support",
  "confidence": 0.75,
  "risk_usd": 500.0,
  "justification": "Strong bullish momentum with volume confirmation"
}` + "\n```"

func TestParseValidEntry(t *testing.T) {
	d, err := Parse(validEntryReply)
	require.NoError(t, err)
	assert.Equal(t, SignalBuyToEnter, d.Signal)
	assert.Equal(t, "BTC", d.Coin)
	assert.Equal(t, 0.1, d.Quantity)
	assert.Equal(t, 5, d.Leverage)
	assert.Equal(t, 105000.0, d.TakeProfitPrice)
	assert.Equal(t, 95000.0, d.StopLossPrice)
	assert.Equal(t, 0.75, d.Confidence)
	assert.True(t, d.IsEntry())
	assert.Equal(t, "long", d.Direction())
}

func TestParseToleratesProseAndNumericStrings(t *testing.T) {
	raw := `Based on my analysis: {"signal": "sell_to_enter", "coin": "ETH", "quantity": "0.5",
		"leverage": "3", "take_profit_price": 3000, "stop_loss_price": 3600,
		"invalidation_condition": "reclaim of 3600", "confidence": 0.6,
		"risk_usd": 120, "justification": "lower highs on 4h"} hope that helps`
	d, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, SignalSellToEnter, d.Signal)
	assert.Equal(t, 0.5, d.Quantity)
	assert.Equal(t, 3, d.Leverage)
	assert.Equal(t, "short", d.Direction())
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no json", "I would hold for now."},
		{"bad signal", `{"signal": "yolo", "coin": "BTC", "quantity": 0, "leverage": 1,
			"take_profit_price": 0, "stop_loss_price": 0, "confidence": 0.5,
			"risk_usd": 0, "justification": "x"}`},
		{"missing fields", `{"signal": "hold"}`},
		{"leverage out of range", `{"signal": "buy_to_enter", "coin": "BTC", "quantity": 1,
			"leverage": 50, "take_profit_price": 10, "stop_loss_price": 5,
			"confidence": 0.5, "risk_usd": 10, "justification": "x"}`},
		{"confidence out of range", `{"signal": "hold", "coin": "BTC", "quantity": 0,
			"leverage": 1, "take_profit_price": 0, "stop_loss_price": 0,
			"confidence": 1.5, "risk_usd": 0, "justification": "x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseHold(t *testing.T) {
	raw := `{"signal": "hold", "coin": "BTC", "quantity": 0, "leverage": 1,
		"take_profit_price": 0, "stop_loss_price": 0, "invalidation_condition": "N/A",
		"confidence": 0.4, "risk_usd": 0, "justification": "choppy conditions"}`
	d, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, SignalHold, d.Signal)
	assert.False(t, d.IsEntry())
	assert.Empty(t, d.Direction())
}

func TestHoldConstructorAndAnnotate(t *testing.T) {
	d := Hold("oracle unavailable")
	assert.Equal(t, SignalHold, d.Signal)
	assert.Equal(t, 1, d.Leverage)
	assert.Zero(t, d.Quantity)

	d.Annotate("[risk] %s", "loss streak active")
	assert.Contains(t, d.Justification, "oracle unavailable")
	assert.Contains(t, d.Justification, "[risk] loss streak active")
}
