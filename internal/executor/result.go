// Package executor turns a gated decision into exchange actions: sizing
// against live limits and balance, idempotent order placement, fill
// resolution and mandatory bracket enforcement.
package executor

import "moneyagent/internal/exchange"

// Result is the structured outcome of executing one decision. Exchange
// failures are classified here instead of propagating as faults.
type Result struct {
	Success   bool
	Signal    string
	Coin      string
	Pair      string
	Side      string // position direction; for close, the closed direction
	Quantity  float64
	Price     float64
	OrderID   string
	Simulated bool
	ErrKind   exchange.ErrorKind
	Err       string
}

func failure(signal, coin, pair string, kind exchange.ErrorKind, msg string) Result {
	return Result{
		Signal:  signal,
		Coin:    coin,
		Pair:    pair,
		ErrKind: kind,
		Err:     msg,
	}
}

func classified(signal, coin, pair string, err error) Result {
	return failure(signal, coin, pair, exchange.Classify(err), err.Error())
}
