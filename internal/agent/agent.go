package agent

import (
	"context"
	"fmt"
	"time"

	"moneyagent/internal/decision"
	"moneyagent/internal/exchange"
	"moneyagent/internal/executor"
	"moneyagent/internal/ledger"
	"moneyagent/internal/logger"
	"moneyagent/internal/market"
	"moneyagent/internal/risk"
)

// Decider and Executor are the two stage collaborators the orchestrator
// does not own; interfaces keep cycles testable without network or oracle.
type Decider interface {
	Decide(ctx context.Context, pc decision.PromptContext) decision.Decision
}

type Executor interface {
	Execute(ctx context.Context, d decision.Decision) executor.Result
}

// Sink receives the per-cycle records for persistence. Failures there are
// logged, never allowed to break trading.
type Sink interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
}

// CycleRecord is everything one cycle produced.
type CycleRecord struct {
	Cycle          int
	Time           time.Time
	Balance        exchange.Balance
	Positions      []exchange.Position
	Regime         string
	Decision       decision.Decision
	GateLog        []string
	Result         executor.Result
	Metrics        Metrics
	MinutesElapsed int
}

type Config struct {
	Coins           []string
	RestrictedCoins []string
	EquityThreshold float64
	CycleMinutes    int
}

type Agent struct {
	ex         exchange.Exchange
	aggregator *market.Aggregator
	decider    Decider
	executor   Executor
	sink       Sink
	cfg        Config
}

func New(ex exchange.Exchange, aggregator *market.Aggregator, decider Decider, exec Executor, sink Sink, cfg Config) *Agent {
	if cfg.CycleMinutes <= 0 {
		cfg.CycleMinutes = 3
	}
	return &Agent{
		ex:         ex,
		aggregator: aggregator,
		decider:    decider,
		executor:   exec,
		sink:       sink,
		cfg:        cfg,
	}
}

// ActiveCoins is the symbol set new entries may use under the current tier.
func (a *Agent) ActiveCoins(s *State) []string {
	if s.Restricted {
		return a.cfg.RestrictedCoins
	}
	return a.cfg.Coins
}

// RunCycle executes one full gather-decide-gate-execute-score pass,
// mutating the session state. Only balance unavailability fails the cycle;
// everything downstream degrades to a hold or a classified result.
func (a *Agent) RunCycle(ctx context.Context, s *State) (CycleRecord, error) {
	// Shutdown is honored between cycles only. A started cycle runs to
	// completion: an entry must never lose its fill resolution or bracket
	// verification to an interrupt landing mid-order.
	ctx = context.WithoutCancel(ctx)

	s.Cycle++
	logger.InfoBlock(fmt.Sprintf("cycle %d (elapsed %dm)", s.Cycle, s.MinutesElapsed))

	balance, err := a.ex.FetchBalance(ctx)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("fetch balance: %w", err)
	}
	if s.InitialValue <= 0 && balance.Total > 0 {
		s.InitialValue = balance.Total
		logger.Infof("initial account value captured: $%.2f", s.InitialValue)
	}
	// Tier first, so the oracle is told which symbols are tradable.
	s.updateTier(balance.Total, a.cfg.EquityThreshold)
	active := a.ActiveCoins(s)

	positions, err := a.ex.FetchPositions(ctx)
	if err != nil {
		logger.Errorf("fetch positions failed, oracle sees none this cycle: %v", err)
		positions = nil
	}

	snapshots := a.aggregator.Gather(ctx, a.cfg.Coins)
	regime := market.ClassifyRegime(snapshots)

	trades := s.Ledger.Trades()
	s.Metrics = computeMetrics(s.InitialValue, balance.Total, trades)

	raw := a.decider.Decide(ctx, decision.PromptContext{
		MinutesElapsed: s.MinutesElapsed,
		Snapshots:      snapshots,
		Regime:         regime,
		Balance:        balance,
		Positions:      positions,
		ActiveCoins:    active,
		Restricted:     s.Restricted,
		ReturnPct:      s.Metrics.ReturnPct,
		SharpeRatio:    s.Metrics.SharpeRatio,
		RecentTrades:   recentTradeLines(trades, 5),
	})

	gated, gateLog := risk.Gate(raw, risk.Input{
		Snapshots:   snapshots,
		TrendByCoin: regime.TrendByCoin,
		Trades:      trades,
		ActiveCoins: active,
	})

	result := a.executor.Execute(ctx, gated)
	a.bookkeep(s, gated, result, positions, balance)

	s.Metrics = computeMetrics(s.InitialValue, balance.Total, s.Ledger.Trades())

	rec := CycleRecord{
		Cycle:          s.Cycle,
		Time:           time.Now().UTC(),
		Balance:        balance,
		Positions:      positions,
		Regime:         regime.Label,
		Decision:       gated,
		GateLog:        gateLog,
		Result:         result,
		Metrics:        s.Metrics,
		MinutesElapsed: s.MinutesElapsed,
	}
	if a.sink != nil {
		if err := a.sink.RecordCycle(ctx, rec); err != nil {
			logger.Errorf("persistence sink failed for cycle %d: %v", s.Cycle, err)
		}
	}

	s.MinutesElapsed += a.cfg.CycleMinutes
	return rec, nil
}

// bookkeep appends successful non-hold actions to the ledger and resolves
// PnL for closes against the pre-trade position snapshot.
func (a *Agent) bookkeep(s *State, d decision.Decision, res executor.Result, positions []exchange.Position, balance exchange.Balance) {
	if !res.Success {
		if res.Err != "" {
			logger.Errorf("execution failed (%s): %s", res.ErrKind, res.Err)
		}
		return
	}
	if d.Signal == decision.SignalHold {
		return
	}

	s.Ledger.Append(ledger.Trade{
		Cycle:         s.Cycle,
		Time:          time.Now().UTC(),
		Signal:        d.Signal,
		Coin:          res.Coin,
		Side:          res.Side,
		Quantity:      res.Quantity,
		Price:         res.Price,
		Leverage:      d.Leverage,
		Confidence:    d.Confidence,
		Justification: d.Justification,
		AccountValue:  balance.Total,
	})

	if d.Signal != decision.SignalClose {
		return
	}
	for _, p := range positions {
		if p.Pair != res.Pair {
			continue
		}
		pnl := (res.Price - p.EntryPrice) * res.Quantity
		if p.Side == exchange.PositionShort {
			pnl = -pnl
		}
		if s.Ledger.ResolveLast(res.Coin, pnl) {
			logger.Infof("closed %s %s resolved PnL $%.2f", p.Side, res.Pair, pnl)
		}
		return
	}
}

func recentTradeLines(trades []ledger.Trade, n int) []string {
	if len(trades) > n {
		trades = trades[len(trades)-n:]
	}
	out := make([]string, 0, len(trades))
	for _, t := range trades {
		line := fmt.Sprintf("cycle %d: %s %s qty=%v @ %v lev=%dx", t.Cycle, t.Signal, t.Coin, t.Quantity, t.Price, t.Leverage)
		if t.PnL != nil {
			line += fmt.Sprintf(" pnl=$%.2f", *t.PnL)
		}
		out = append(out, line)
	}
	return out
}
