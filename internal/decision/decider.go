package decision

import (
	"context"
	"time"

	"moneyagent/internal/logger"
	"moneyagent/internal/pkg/circuit"
)

// Decider runs the oracle round-trip for one cycle and always hands back a
// usable Decision: any failure along the way degrades to a reasoned hold.
type Decider struct {
	oracle  Oracle
	prompts *PromptWatcher
	breaker *circuit.Breaker
}

func NewDecider(oracle Oracle, prompts *PromptWatcher) *Decider {
	return &Decider{
		oracle:  oracle,
		prompts: prompts,
		breaker: circuit.NewBreaker("oracle", 3, 5*time.Minute),
	}
}

// Decide renders the prompts, asks the oracle and parses the reply. The
// returned Decision is raw: it still has to pass the risk gate.
func (d *Decider) Decide(ctx context.Context, pc PromptContext) Decision {
	if !d.breaker.Allow() {
		logger.Warnf("oracle breaker open, holding this cycle")
		return Hold("decision oracle unavailable (breaker open)")
	}

	systemPrompt := SystemPrompt()
	if d.prompts != nil {
		systemPrompt = d.prompts.SystemPrompt()
	}
	userPrompt := BuildUserPrompt(pc)
	logger.LogOracleRequest(systemPrompt, userPrompt)

	raw, err := d.oracle.Ask(ctx, systemPrompt, userPrompt)
	if err != nil {
		d.breaker.RecordFailure()
		logger.Errorf("oracle call failed: %v", err)
		return Hold("decision oracle call failed: " + err.Error())
	}
	d.breaker.RecordSuccess()
	logger.LogOracleResponse(raw)

	dec, err := Parse(raw)
	if err != nil {
		logger.Errorf("oracle reply rejected: %v", err)
		return Hold("oracle reply rejected: " + err.Error())
	}
	logger.Infof("oracle decision: signal=%s coin=%s qty=%s lev=%d conf=%.2f",
		dec.Signal, dec.Coin, formatQty(dec.Quantity), dec.Leverage, dec.Confidence)
	return dec
}
