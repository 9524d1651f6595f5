package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPair(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Pair("btc"))
	assert.Equal(t, "DOGEUSDT", Pair(" Doge "))
	assert.Equal(t, "", Pair("  "))
}

func TestNormalizeList(t *testing.T) {
	out := NormalizeList([]string{"btc", "ETH", "btc", "", " sol "})
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, out)
}
