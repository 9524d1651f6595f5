package retry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainFirstStepWins(t *testing.T) {
	calls := 0
	v, name, ok := Chain(context.Background(), 3, 0,
		Step[int]{Name: "first", Fn: func(context.Context) (int, bool) { return 42, true }},
		Step[int]{Name: "second", Fn: func(context.Context) (int, bool) { calls++; return 0, true }},
	)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, "first", name)
	assert.Zero(t, calls, "later steps must not run once a step succeeds")
}

func TestChainFallsThroughAndRetries(t *testing.T) {
	firstCalls := 0
	secondCalls := 0
	v, name, ok := Chain(context.Background(), 3, 0,
		Step[string]{Name: "first", Fn: func(context.Context) (string, bool) { firstCalls++; return "", false }},
		Step[string]{Name: "second", Fn: func(context.Context) (string, bool) {
			secondCalls++
			if secondCalls < 2 {
				return "", false
			}
			return "resolved", true
		}},
	)
	assert.True(t, ok)
	assert.Equal(t, "resolved", v)
	assert.Equal(t, "second", name)
	assert.Equal(t, 2, firstCalls)
}

func TestChainGivesUp(t *testing.T) {
	rounds := 0
	_, _, ok := Chain(context.Background(), 3, 0,
		Step[int]{Name: "never", Fn: func(context.Context) (int, bool) { rounds++; return 0, false }},
	)
	assert.False(t, ok)
	assert.Equal(t, 3, rounds)
}

func TestChainHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, ok := Chain(ctx, 3, 0,
		Step[int]{Name: "any", Fn: func(context.Context) (int, bool) { return 1, true }},
	)
	assert.False(t, ok)
}
