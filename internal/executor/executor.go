package executor

import (
	"context"
	"fmt"
	"time"

	"moneyagent/internal/decision"
	"moneyagent/internal/exchange"
	"moneyagent/internal/logger"
	"moneyagent/internal/pkg/retry"
	"moneyagent/internal/pkg/symbol"

	"github.com/google/uuid"
)

const (
	fillAttempts  = 3
	fillRetryWait = 200 * time.Millisecond
)

type Engine struct {
	ex     exchange.Exchange
	dryRun bool
}

func NewEngine(ex exchange.Exchange, dryRun bool) *Engine {
	return &Engine{ex: ex, dryRun: dryRun}
}

// Execute runs one gated decision against the exchange. It never panics or
// returns an error; every failure comes back classified inside the Result.
func (e *Engine) Execute(ctx context.Context, d decision.Decision) Result {
	switch d.Signal {
	case decision.SignalHold:
		return Result{Success: true, Signal: d.Signal}
	case decision.SignalBuyToEnter, decision.SignalSellToEnter:
		return e.enter(ctx, d)
	case decision.SignalClose:
		return e.close(ctx, d)
	default:
		return failure(d.Signal, d.Coin, "", exchange.ErrUnknown,
			fmt.Sprintf("unexecutable signal %q", d.Signal))
	}
}

func (e *Engine) enter(ctx context.Context, d decision.Decision) Result {
	pair := symbol.Pair(d.Coin)

	// Unprotected entries are disallowed by policy, whatever the oracle
	// asked for. The risk gate blocks these upstream; this is the final
	// check before money moves.
	if d.StopLossPrice <= 0 || d.TakeProfitPrice <= 0 {
		return failure(d.Signal, d.Coin, pair, exchange.ErrUnknown,
			"entry refused: bracket prices missing")
	}

	ticker, err := e.ex.FetchTicker(ctx, pair)
	if err != nil {
		return classified(d.Signal, d.Coin, pair, fmt.Errorf("fetch ticker: %w", err))
	}
	price := ticker.Last
	if price <= 0 {
		return failure(d.Signal, d.Coin, pair, exchange.ErrUnknown, "ticker price unavailable")
	}

	balance, err := e.ex.FetchBalance(ctx)
	if err != nil {
		return classified(d.Signal, d.Coin, pair, fmt.Errorf("fetch balance: %w", err))
	}

	limits, ok, err := e.ex.FetchMarketLimits(ctx, pair)
	if err != nil || !ok {
		if err != nil {
			logger.Warnf("executor: market limits for %s unavailable (%v), using fallback table", pair, err)
		}
		limits = fallbackLimits(d.Coin)
	}

	qty, sized, ok := e.sizeQuantity(d, price, balance.Available, limits)
	if !ok {
		return sized
	}

	if e.dryRun {
		logger.Infof("executor[dry-run]: %s %s qty=%v @ %v sl=%v tp=%v",
			d.Signal, pair, qty, price, d.StopLossPrice, d.TakeProfitPrice)
		return Result{
			Success:   true,
			Signal:    d.Signal,
			Coin:      d.Coin,
			Pair:      pair,
			Side:      d.Direction(),
			Quantity:  qty,
			Price:     price,
			OrderID:   "dry-" + uuid.NewString(),
			Simulated: true,
		}
	}

	// Account setup is idempotent on the exchange side; failures here are
	// logged and the entry proceeds on the current settings.
	if err := e.ex.SetPositionMode(ctx, false); err != nil {
		logger.Warnf("executor: set one-way position mode: %v", err)
	}
	if err := e.ex.SetLeverage(ctx, pair, d.Leverage); err != nil {
		logger.Warnf("executor: set leverage %dx on %s: %v", d.Leverage, pair, err)
	}

	side := exchange.SideBuy
	if d.Signal == decision.SignalSellToEnter {
		side = exchange.SideSell
	}
	order, err := e.ex.CreateOrder(ctx, exchange.OrderRequest{
		Pair:       pair,
		Side:       side,
		Quantity:   qty,
		StopLoss:   d.StopLossPrice,
		TakeProfit: d.TakeProfitPrice,
	})
	if err != nil && order.ID == "" {
		return classified(d.Signal, d.Coin, pair, fmt.Errorf("create order: %w", err))
	}
	if err != nil {
		// The entry stands but a trigger failed to attach; verification
		// below places the missing leg.
		logger.Errorf("executor: entry on %s filled but bracket placement failed: %v", pair, err)
	}

	fillPrice, recorded := e.resolveFill(ctx, pair, order, ticker)
	if recorded {
		logger.Warnf("executor: fill price for %s order %s unresolved, recording ticker price %v",
			pair, order.ID, fillPrice)
	}

	e.verifyProtection(ctx, pair, d)

	filledQty := order.ExecutedQty
	if filledQty <= 0 {
		filledQty = qty
	}
	logger.Infof("executor: %s %s qty=%v @ %v order=%s", d.Signal, pair, filledQty, fillPrice, order.ID)
	return Result{
		Success:  true,
		Signal:   d.Signal,
		Coin:     d.Coin,
		Pair:     pair,
		Side:     d.Direction(),
		Quantity: filledQty,
		Price:    fillPrice,
		OrderID:  order.ID,
	}
}

// sizeQuantity applies the minimum-raise and affordability rules. On a
// sizing failure ok is false and the Result carries the classification.
func (e *Engine) sizeQuantity(d decision.Decision, price, available float64, limits exchange.MarketLimits) (float64, Result, bool) {
	pair := symbol.Pair(d.Coin)
	qty := d.Quantity

	// Raise to the exchange minimum only when the margin for it exists;
	// a silently smaller, invalid size must never reach the exchange.
	if limits.MinQuantity > 0 && qty < limits.MinQuantity {
		need := requiredMargin(limits.MinQuantity, price, d.Leverage)
		if available < need {
			return 0, failure(d.Signal, d.Coin, pair, exchange.ErrInsufficientFunds,
				fmt.Sprintf("minimum quantity %v needs $%.2f margin, only $%.2f available",
					limits.MinQuantity, need, available)), false
		}
		logger.Infof("executor: raising %s quantity %v to exchange minimum %v", pair, qty, limits.MinQuantity)
		qty = limits.MinQuantity
	}

	// Scale down when the request overshoots the free balance.
	if requiredMargin(qty, price, d.Leverage)*marginBufferRatio > available {
		affordable := maxAffordableQuantity(available, price, d.Leverage)
		affordable = floorQuantity(affordable, limits)
		if limits.MinQuantity > 0 && affordable < limits.MinQuantity {
			return 0, failure(d.Signal, d.Coin, pair, exchange.ErrInsufficientFunds,
				fmt.Sprintf("affordable quantity %v is below the exchange minimum %v",
					affordable, limits.MinQuantity)), false
		}
		if affordable <= 0 {
			return 0, failure(d.Signal, d.Coin, pair, exchange.ErrInsufficientFunds,
				"no affordable quantity at current balance"), false
		}
		logger.Warnf("executor: scaling %s quantity %v down to affordable %v", pair, qty, affordable)
		qty = affordable
	}

	if limits.MaxQuantity > 0 && qty > limits.MaxQuantity {
		logger.Warnf("executor: capping %s quantity %v at exchange maximum %v", pair, qty, limits.MaxQuantity)
		qty = limits.MaxQuantity
	}

	qty = floorQuantity(qty, limits)
	if qty <= 0 || (limits.MinQuantity > 0 && qty < limits.MinQuantity) {
		return 0, failure(d.Signal, d.Coin, pair, exchange.ErrInsufficientFunds,
			fmt.Sprintf("quantity %v invalid after grid adjustment", qty)), false
	}
	return qty, Result{}, true
}

// resolveFill works through the fill-price fallbacks: the order's own
// average, a re-fetch by id, then a VWAP over the order's trades, retried
// before the last-resort ticker price. The bool marks a recorded (not
// actual) price.
func (e *Engine) resolveFill(ctx context.Context, pair string, order exchange.Order, ticker exchange.Ticker) (float64, bool) {
	price, source, ok := retry.Chain(ctx, fillAttempts, fillRetryWait,
		retry.Step[float64]{
			Name: "order-average",
			Fn: func(context.Context) (float64, bool) {
				if order.AvgPrice > 0 {
					return order.AvgPrice, true
				}
				if order.Price > 0 {
					return order.Price, true
				}
				return 0, false
			},
		},
		retry.Step[float64]{
			Name: "order-refetch",
			Fn: func(ctx context.Context) (float64, bool) {
				fetched, err := e.ex.FetchOrder(ctx, pair, order.ID)
				if err != nil || fetched.AvgPrice <= 0 {
					return 0, false
				}
				return fetched.AvgPrice, true
			},
		},
		retry.Step[float64]{
			Name: "trade-vwap",
			Fn: func(ctx context.Context) (float64, bool) {
				trades, err := e.ex.FetchMyTrades(ctx, pair)
				if err != nil {
					return 0, false
				}
				return vwapForOrder(trades, order.ID)
			},
		},
	)
	if ok {
		logger.Debugf("executor: fill price for %s resolved via %s: %v", order.ID, source, price)
		return price, false
	}
	return ticker.Last, true
}

func vwapForOrder(trades []exchange.Trade, orderID string) (float64, bool) {
	var notional, volume float64
	for _, t := range trades {
		if t.OrderID != orderID {
			continue
		}
		notional += t.Price * t.Quantity
		volume += t.Quantity
	}
	if volume <= 0 {
		return 0, false
	}
	return notional / volume, true
}

// verifyProtection re-reads the position and places any bracket leg that
// did not attach. An open position must never be left unprotected.
func (e *Engine) verifyProtection(ctx context.Context, pair string, d decision.Decision) {
	positions, err := e.ex.FetchPositions(ctx)
	if err != nil {
		logger.Errorf("executor: PROTECTION UNVERIFIED on %s, position re-read failed: %v", pair, err)
		return
	}
	var pos *exchange.Position
	for i := range positions {
		if positions[i].Pair == pair {
			pos = &positions[i]
			break
		}
	}
	if pos == nil {
		logger.Errorf("executor: PROTECTION UNVERIFIED, no %s position visible after entry", pair)
		return
	}

	closeSide := exchange.SideSell
	if pos.Side == exchange.PositionShort {
		closeSide = exchange.SideBuy
	}
	if pos.StopLoss <= 0 {
		logger.Warnf("executor: stop-loss missing on %s, placing corrective order at %v", pair, d.StopLossPrice)
		if _, err := e.ex.CreateStopLossOrder(ctx, pair, closeSide, pos.Size, d.StopLossPrice); err != nil {
			logger.Errorf("executor: UNPROTECTED POSITION on %s, corrective stop-loss failed: %v", pair, err)
		}
	}
	if pos.TakeProfit <= 0 {
		logger.Warnf("executor: take-profit missing on %s, placing corrective order at %v", pair, d.TakeProfitPrice)
		if _, err := e.ex.CreateTakeProfitOrder(ctx, pair, closeSide, pos.Size, d.TakeProfitPrice); err != nil {
			logger.Errorf("executor: take-profit corrective order on %s failed: %v", pair, err)
		}
	}
}

func (e *Engine) close(ctx context.Context, d decision.Decision) Result {
	pair := symbol.Pair(d.Coin)

	positions, err := e.ex.FetchPositions(ctx)
	if err != nil {
		return classified(d.Signal, d.Coin, pair, fmt.Errorf("fetch positions: %w", err))
	}
	var pos *exchange.Position
	for i := range positions {
		if positions[i].Pair == pair {
			pos = &positions[i]
			break
		}
	}
	if pos == nil {
		return failure(d.Signal, d.Coin, pair, exchange.ErrNotFound,
			fmt.Sprintf("no open position on %s to close", pair))
	}

	side := exchange.SideSell
	if pos.Side == exchange.PositionShort {
		side = exchange.SideBuy
	}

	if e.dryRun {
		logger.Infof("executor[dry-run]: close %s %s qty=%v @ %v", pos.Side, pair, pos.Size, pos.MarkPrice)
		return Result{
			Success:   true,
			Signal:    d.Signal,
			Coin:      d.Coin,
			Pair:      pair,
			Side:      pos.Side,
			Quantity:  pos.Size,
			Price:     pos.MarkPrice,
			OrderID:   "dry-" + uuid.NewString(),
			Simulated: true,
		}
	}

	order, err := e.ex.CreateOrder(ctx, exchange.OrderRequest{
		Pair:       pair,
		Side:       side,
		Quantity:   pos.Size,
		ReduceOnly: true,
	})
	if err != nil {
		return classified(d.Signal, d.Coin, pair, fmt.Errorf("close order: %w", err))
	}

	ticker, terr := e.ex.FetchTicker(ctx, pair)
	if terr != nil {
		ticker = exchange.Ticker{Pair: pair, Last: pos.MarkPrice}
	}
	fillPrice, recorded := e.resolveFill(ctx, pair, order, ticker)
	if recorded {
		logger.Warnf("executor: close fill on %s unresolved, recording ticker price %v", pair, fillPrice)
	}

	logger.Infof("executor: closed %s %s qty=%v @ %v order=%s", pos.Side, pair, pos.Size, fillPrice, order.ID)
	return Result{
		Success:  true,
		Signal:   d.Signal,
		Coin:     d.Coin,
		Pair:     pair,
		Side:     pos.Side,
		Quantity: pos.Size,
		Price:    fillPrice,
		OrderID:  order.ID,
	}
}
