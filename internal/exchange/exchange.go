// Package exchange defines the trading-exchange abstraction the agent runs
// against. The interface mirrors the operations of a CCXT-style client so
// the execution logic stays independent of the concrete backend.
package exchange

import "context"

type Exchange interface {
	Name() string

	FetchBalance(ctx context.Context) (Balance, error)

	FetchPositions(ctx context.Context) ([]Position, error)

	FetchCandles(ctx context.Context, pair, interval string, limit int) ([]Candle, error)

	FetchTicker(ctx context.Context, pair string) (Ticker, error)

	FetchFundingRate(ctx context.Context, pair string) (float64, error)

	FetchOpenInterest(ctx context.Context, pair string) (float64, error)

	// FetchMarketLimits returns ok=false when the exchange reports no
	// limits for the pair; callers fall back to their own minimum table.
	FetchMarketLimits(ctx context.Context, pair string) (MarketLimits, bool, error)

	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)

	FetchOrder(ctx context.Context, pair, orderID string) (Order, error)

	FetchMyTrades(ctx context.Context, pair string) ([]Trade, error)

	SetLeverage(ctx context.Context, pair string, leverage int) error

	SetPositionMode(ctx context.Context, hedge bool) error

	CreateStopLossOrder(ctx context.Context, pair, closeSide string, quantity, triggerPrice float64) (Order, error)

	CreateTakeProfitOrder(ctx context.Context, pair, closeSide string, quantity, triggerPrice float64) (Order, error)
}
