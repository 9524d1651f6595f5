package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	reply string
	err   error
	calls int
}

func (s *stubOracle) Ask(context.Context, string, string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestDeciderSuccess(t *testing.T) {
	oracle := &stubOracle{reply: validEntryReply}
	d := NewDecider(oracle, nil)

	dec := d.Decide(context.Background(), PromptContext{ActiveCoins: []string{"BTC"}})
	require.Equal(t, SignalBuyToEnter, dec.Signal)
	assert.Equal(t, "BTC", dec.Coin)
	assert.Equal(t, 1, oracle.calls)
}

func TestDeciderHoldsOnOracleError(t *testing.T) {
	oracle := &stubOracle{err: errors.New("upstream down")}
	d := NewDecider(oracle, nil)

	dec := d.Decide(context.Background(), PromptContext{})
	assert.Equal(t, SignalHold, dec.Signal)
	assert.Zero(t, dec.Quantity)
	assert.Equal(t, 1, dec.Leverage)
	assert.Contains(t, dec.Justification, "oracle call failed")
}

func TestDeciderHoldsOnMalformedReply(t *testing.T) {
	oracle := &stubOracle{reply: "I cannot decide right now."}
	d := NewDecider(oracle, nil)

	dec := d.Decide(context.Background(), PromptContext{})
	assert.Equal(t, SignalHold, dec.Signal)
	assert.Contains(t, dec.Justification, "rejected")
}

func TestDeciderBreakerStopsCallsAfterRepeatedFailures(t *testing.T) {
	oracle := &stubOracle{err: errors.New("upstream down")}
	d := NewDecider(oracle, nil)

	for i := 0; i < 3; i++ {
		d.Decide(context.Background(), PromptContext{})
	}
	assert.Equal(t, 3, oracle.calls)

	dec := d.Decide(context.Background(), PromptContext{})
	assert.Equal(t, SignalHold, dec.Signal)
	assert.Contains(t, dec.Justification, "breaker open")
	assert.Equal(t, 3, oracle.calls)
}
