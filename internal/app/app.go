// Package app assembles the trading loop from configuration and runs it.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"moneyagent/internal/agent"
	"moneyagent/internal/config"
	"moneyagent/internal/decision"
	"moneyagent/internal/exchange/binance"
	"moneyagent/internal/executor"
	"moneyagent/internal/logger"
	"moneyagent/internal/market"
	"moneyagent/internal/store"

	"gopkg.in/yaml.v3"
)

type App struct {
	cfg   *config.Config
	agent *agent.Agent

	prompts    *decision.PromptWatcher
	store      *store.Store
	logFile    *os.File
	oracleFile *os.File
}

// New wires the exchange adapter, market aggregator, oracle decider,
// execution engine and sink from the validated config.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	logger.SetLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	if cfg.Log.OracleFile != "" {
		f, err := os.OpenFile(cfg.Log.OracleFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open oracle dump file: %w", err)
		}
		a.oracleFile = f
		logger.SetOracleWriter(f)
	}

	ex := binance.New(binance.Config{
		APIKey:      cfg.Exchange.APIKey,
		APISecret:   cfg.Exchange.APISecret,
		RESTBaseURL: cfg.Exchange.BaseURL,
		HTTPTimeout: time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
	})

	oracle := &decision.ChatOracle{
		BaseURL:     cfg.Oracle.BaseURL,
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.Model,
		Temperature: cfg.Oracle.Temperature,
		Timeout:     time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.Oracle.MaxRetries,
	}
	if cfg.Oracle.PromptFile != "" {
		prompts, err := decision.NewPromptWatcher(cfg.Oracle.PromptFile)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("watch prompt file: %w", err)
		}
		a.prompts = prompts
	}

	var sink agent.Sink
	if cfg.Store.Enabled {
		st, err := store.New(cfg.Store.Path)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		sink = st
	}

	a.agent = agent.New(
		ex,
		market.NewAggregator(ex, cfg.Trading.CandleLimit, cfg.Trading.PoolWidth),
		decision.NewDecider(oracle, a.prompts),
		executor.NewEngine(ex, cfg.Trading.DryRun),
		sink,
		agent.Config{
			Coins:           cfg.Trading.Coins,
			RestrictedCoins: cfg.Trading.RestrictedCoins,
			EquityThreshold: cfg.Trading.EquityThreshold,
			CycleMinutes:    cfg.Trading.CycleMinutes,
		},
	)
	return a, nil
}

// Run drives cycles until the configured count is reached or the context is
// cancelled. Cancellation is honored between cycles, never mid-cycle.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.echoConfig()
	if a.cfg.Trading.DryRun {
		logger.Infof("dry-run enabled: orders are simulated, market data is live")
	}

	s := agent.NewState()
	interval := time.Duration(a.cfg.Trading.CycleMinutes) * time.Minute
	var lastTotal float64

	for {
		rec, err := a.agent.RunCycle(ctx, s)
		if err != nil {
			logger.Errorf("cycle %d aborted: %v", s.Cycle, err)
		} else {
			lastTotal = rec.Balance.Total
		}

		if a.cfg.Trading.CycleCount > 0 && s.Cycle >= a.cfg.Trading.CycleCount {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			logger.Infof("shutdown requested, stopping after cycle %d", s.Cycle)
			a.summarize(s, lastTotal)
			return ctx.Err()
		}
	}

	a.summarize(s, lastTotal)
	return nil
}

func (a *App) summarize(s *agent.State, finalTotal float64) {
	logger.InfoBlock(fmt.Sprintf(
		"session finished\ncycles run: %d\nelapsed: %dm\nfinal account value: $%.2f\nreturn: %.2f%%\nsharpe: %.3f\ntrades recorded: %d",
		s.Cycle, s.MinutesElapsed, finalTotal, s.Metrics.ReturnPct, s.Metrics.SharpeRatio, s.Ledger.Len(),
	))
}

// echoConfig logs the effective configuration with credentials masked.
func (a *App) echoConfig() {
	masked := *a.cfg
	masked.Exchange.APIKey = mask(masked.Exchange.APIKey)
	masked.Exchange.APISecret = mask(masked.Exchange.APISecret)
	masked.Oracle.APIKey = mask(masked.Oracle.APIKey)

	out, err := yaml.Marshal(masked)
	if err != nil {
		logger.Warnf("config echo failed: %v", err)
		return
	}
	logger.InfoBlock("effective configuration:\n" + string(out))
}

func mask(s string) string {
	if len(s) <= 6 {
		if s == "" {
			return ""
		}
		return "***"
	}
	return s[:3] + "***" + s[len(s)-2:]
}

func (a *App) close() {
	if a.prompts != nil {
		_ = a.prompts.Close()
		a.prompts = nil
	}
	if a.store != nil {
		_ = a.store.Close()
		a.store = nil
	}
	if a.oracleFile != nil {
		logger.SetOracleWriter(nil)
		_ = a.oracleFile.Close()
		a.oracleFile = nil
	}
	if a.logFile != nil {
		logger.SetOutput(os.Stdout)
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
