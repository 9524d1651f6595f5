// Package config loads and validates the process configuration. Invalid
// configuration fails startup; nothing here is checked again at runtime.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"moneyagent/internal/pkg/symbol"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Exchange ExchangeConfig `mapstructure:"exchange" yaml:"exchange"`
	Oracle   OracleConfig   `mapstructure:"oracle" yaml:"oracle"`
	Trading  TradingConfig  `mapstructure:"trading" yaml:"trading"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	OracleFile string `mapstructure:"oracle_file" yaml:"oracle_file"`
}

type ExchangeConfig struct {
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	APISecret      string `mapstructure:"api_secret" yaml:"api_secret"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type OracleConfig struct {
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	Model          string  `mapstructure:"model" yaml:"model"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`
	PromptFile     string  `mapstructure:"prompt_file" yaml:"prompt_file"`
}

type TradingConfig struct {
	Coins           []string `mapstructure:"coins" yaml:"coins"`
	RestrictedCoins []string `mapstructure:"restricted_coins" yaml:"restricted_coins"`
	EquityThreshold float64  `mapstructure:"equity_threshold" yaml:"equity_threshold"`
	CandleLimit     int      `mapstructure:"candle_limit" yaml:"candle_limit"`
	PoolWidth       int      `mapstructure:"pool_width" yaml:"pool_width"`
	CycleMinutes    int      `mapstructure:"cycle_minutes" yaml:"cycle_minutes"`
	CycleCount      int      `mapstructure:"cycle_count" yaml:"cycle_count"`
	DryRun          bool     `mapstructure:"dry_run" yaml:"dry_run"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Load reads the YAML config at path, layers environment overrides for the
// credentials, applies defaults and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix("MONEYAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"exchange.api_key", "exchange.api_secret", "oracle.api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	decode := func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
	}
	if err := v.Unmarshal(&cfg, decode); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Exchange.TimeoutSeconds <= 0 {
		c.Exchange.TimeoutSeconds = 30
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = 120
	}
	if c.Oracle.MaxRetries <= 0 {
		c.Oracle.MaxRetries = 2
	}
	if c.Oracle.Temperature <= 0 {
		c.Oracle.Temperature = 0.5
	}
	if len(c.Trading.Coins) == 0 {
		c.Trading.Coins = []string{"BTC", "ETH", "SOL", "BGB", "DOGE", "SUI", "LTC"}
	}
	if len(c.Trading.RestrictedCoins) == 0 {
		c.Trading.RestrictedCoins = []string{"DOGE"}
	}
	if c.Trading.EquityThreshold <= 0 {
		c.Trading.EquityThreshold = 30
	}
	if c.Trading.CandleLimit <= 0 {
		c.Trading.CandleLimit = 100
	}
	if c.Trading.PoolWidth <= 0 {
		c.Trading.PoolWidth = 8
	}
	if c.Trading.CycleMinutes <= 0 {
		c.Trading.CycleMinutes = 3
	}
	if c.Store.Enabled && c.Store.Path == "" {
		c.Store.Path = "data/moneyagent.db"
	}

	c.Trading.Coins = symbol.NormalizeList(c.Trading.Coins)
	c.Trading.RestrictedCoins = symbol.NormalizeList(c.Trading.RestrictedCoins)
}

var coinPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

func (c *Config) validate() error {
	for _, coin := range append(append([]string{}, c.Trading.Coins...), c.Trading.RestrictedCoins...) {
		if !coinPattern.MatchString(coin) {
			return fmt.Errorf("invalid coin symbol %q", coin)
		}
	}
	for _, coin := range c.Trading.RestrictedCoins {
		if !containsCoin(c.Trading.Coins, coin) {
			return fmt.Errorf("restricted coin %s is not part of the trading universe", coin)
		}
	}
	if !c.Trading.DryRun {
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return fmt.Errorf("exchange credentials are required unless dry_run is enabled")
		}
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle.model is required")
	}
	if c.Trading.CycleCount < 0 {
		return fmt.Errorf("trading.cycle_count must not be negative")
	}
	return nil
}

func containsCoin(coins []string, coin string) bool {
	for _, c := range coins {
		if c == coin {
			return true
		}
	}
	return false
}
