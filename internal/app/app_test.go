package app

import (
	"path/filepath"
	"testing"

	"moneyagent/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Log:    config.LogConfig{Level: "info"},
		Oracle: config.OracleConfig{Model: "gpt-4o"},
		Trading: config.TradingConfig{
			Coins:           []string{"BTC"},
			RestrictedCoins: []string{"BTC"},
			EquityThreshold: 30,
			CandleLimit:     100,
			PoolWidth:       2,
			CycleMinutes:    3,
			DryRun:          true,
		},
		Store: config.StoreConfig{
			Enabled: true,
			Path:    filepath.Join(t.TempDir(), "agent.db"),
		},
	}
}

func TestNewWiresDryRunApp(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.close)

	assert.NotNil(t, a.agent)
	assert.NotNil(t, a.store)
	assert.Nil(t, a.prompts)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "sk-***yz", mask("sk-1234567890yz"))
}
