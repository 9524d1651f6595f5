package market

import (
	"context"
	"fmt"

	"moneyagent/internal/exchange"
	"moneyagent/internal/logger"
	"moneyagent/internal/pkg/symbol"

	"golang.org/x/sync/errgroup"
)

const DefaultPoolWidth = 8

// Aggregator fans out per-symbol data fetches against one exchange.
type Aggregator struct {
	ex          exchange.Exchange
	candleLimit int
	poolWidth   int
}

func NewAggregator(ex exchange.Exchange, candleLimit, poolWidth int) *Aggregator {
	if candleLimit <= 0 {
		candleLimit = DefaultCandleLimit
	}
	if poolWidth <= 0 {
		poolWidth = DefaultPoolWidth
	}
	return &Aggregator{ex: ex, candleLimit: candleLimit, poolWidth: poolWidth}
}

// Gather produces one Snapshot per coin, in the caller's coin order. Fetches
// run concurrently under a bounded pool; a symbol's failure marks only that
// snapshot as failed and never aborts the batch.
func (a *Aggregator) Gather(ctx context.Context, coins []string) []Snapshot {
	snapshots := make([]Snapshot, len(coins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.poolWidth)
	for i, coin := range coins {
		g.Go(func() error {
			snapshots[i] = a.fetchOne(gctx, coin)
			return nil
		})
	}
	g.Wait()
	for _, s := range snapshots {
		if !s.OK {
			logger.Warnf("market: %s excluded this cycle: %s", s.Coin, s.Err)
		}
	}
	return snapshots
}

func (a *Aggregator) fetchOne(ctx context.Context, coin string) Snapshot {
	snap := Snapshot{
		Coin:       symbol.Normalize(coin),
		Pair:       symbol.Pair(coin),
		Candles:    make(map[string][]exchange.Candle, 2),
		Indicators: make(map[string]IndicatorSet, 2),
	}

	ticker, err := a.ex.FetchTicker(ctx, snap.Pair)
	if err != nil {
		snap.Err = fmt.Sprintf("ticker: %v", err)
		return snap
	}
	snap.Ticker = ticker
	snap.CurrentPrice = ticker.Last

	for _, interval := range []string{FastInterval, SlowInterval} {
		candles, err := a.ex.FetchCandles(ctx, snap.Pair, interval, a.candleLimit)
		if err != nil {
			snap.Err = fmt.Sprintf("candles %s: %v", interval, err)
			return snap
		}
		if len(candles) == 0 {
			snap.Err = fmt.Sprintf("candles %s: empty series", interval)
			return snap
		}
		snap.Candles[interval] = candles
		snap.Indicators[interval] = ComputeIndicators(candles)
	}

	// Funding and open interest enrich the prompt but are not worth
	// failing the symbol over.
	if rate, err := a.ex.FetchFundingRate(ctx, snap.Pair); err != nil {
		logger.Debugf("market: funding rate for %s unavailable: %v", snap.Pair, err)
	} else {
		snap.FundingRate = rate
	}
	if oi, err := a.ex.FetchOpenInterest(ctx, snap.Pair); err != nil {
		logger.Debugf("market: open interest for %s unavailable: %v", snap.Pair, err)
	} else {
		snap.OpenInterest = oi
	}

	snap.OK = true
	return snap
}
