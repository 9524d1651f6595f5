// Package agent owns the per-cycle orchestration: gather, decide, gate,
// execute, score. All mutable session state lives in State, owned by the
// orchestrator and never shared across goroutines.
package agent

import (
	"moneyagent/internal/ledger"
	"moneyagent/internal/logger"
)

// State is the session state carried across cycles.
type State struct {
	Cycle          int
	MinutesElapsed int

	// InitialValue is the account value captured on the first cycle; the
	// baseline for return%.
	InitialValue float64

	Restricted      bool
	tierInitialized bool

	Ledger  *ledger.Ledger
	Metrics Metrics
}

func NewState() *State {
	return &State{Ledger: ledger.New()}
}

// updateTier recomputes the equity tier from fresh balance. Transitions are
// logged exactly once, not every cycle.
func (s *State) updateTier(accountValue, threshold float64) {
	restricted := accountValue < threshold
	if !s.tierInitialized {
		s.tierInitialized = true
		s.Restricted = restricted
		if restricted {
			logger.Warnf("equity $%.2f below $%.2f threshold, starting in restricted mode", accountValue, threshold)
		}
		return
	}
	if restricted == s.Restricted {
		return
	}
	s.Restricted = restricted
	if restricted {
		logger.Warnf("equity $%.2f dropped below $%.2f, switching to restricted symbol set", accountValue, threshold)
	} else {
		logger.Infof("equity $%.2f recovered above $%.2f, full symbol set re-enabled", accountValue, threshold)
	}
}
