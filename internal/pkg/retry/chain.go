// Package retry implements a small retry-with-fallback-chain primitive:
// an ordered list of resolution steps tried in sequence, with the whole
// sequence retried a bounded number of times before giving up.
package retry

import (
	"context"
	"time"
)

// Step is one resolution attempt. Fn reports ok=false when the step could
// not produce a value this round; the chain then moves to the next step.
type Step[T any] struct {
	Name string
	Fn   func(ctx context.Context) (T, bool)
}

// Chain runs steps in order. If no step succeeds, the whole sequence is
// retried up to attempts times, sleeping delay between rounds. Returns the
// resolved value, the name of the step that produced it, and whether any
// step succeeded. Context cancellation stops the chain early.
func Chain[T any](ctx context.Context, attempts int, delay time.Duration, steps ...Step[T]) (T, string, bool) {
	var zero T
	if attempts <= 0 {
		attempts = 1
	}
	for round := 0; round < attempts; round++ {
		if ctx.Err() != nil {
			return zero, "", false
		}
		for _, step := range steps {
			if v, ok := step.Fn(ctx); ok {
				return v, step.Name, true
			}
		}
		if round < attempts-1 {
			if !sleepWithContext(ctx, delay) {
				return zero, "", false
			}
		}
	}
	return zero, "", false
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
