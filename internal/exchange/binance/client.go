// Package binance adapts the go-binance USDT-M futures client to the
// exchange.Exchange interface.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"moneyagent/internal/exchange"

	"github.com/adshao/go-binance/v2/futures"
)

const maxCandleLimit = 1500

type Config struct {
	APIKey      string
	APISecret   string
	RESTBaseURL string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.RESTBaseURL) == "" {
		c.RESTBaseURL = "https://fapi.binance.com"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	return c
}

// Client implements exchange.Exchange on Binance USDT-M futures.
type Client struct {
	cfg    Config
	client *futures.Client

	limitsMu sync.Mutex
	limits   map[string]exchange.MarketLimits // populated lazily from exchange info
}

var _ exchange.Exchange = (*Client)(nil)

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	cli := futures.NewClient(final.APIKey, final.APISecret)
	cli.BaseURL = strings.TrimRight(strings.TrimSpace(final.RESTBaseURL), "/")
	cli.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Client{
		cfg:    final,
		client: cli,
		limits: make(map[string]exchange.MarketLimits),
	}
}

func (c *Client) Name() string { return "binance-futures" }

func (c *Client) FetchBalance(ctx context.Context) (exchange.Balance, error) {
	balances, err := c.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return exchange.Balance{}, err
	}
	for _, b := range balances {
		if b == nil || b.Asset != "USDT" {
			continue
		}
		total := parseFloat(b.Balance)
		available := parseFloat(b.AvailableBalance)
		used := total - available
		if used < 0 {
			used = 0
		}
		return exchange.Balance{Total: total, Available: available, Used: used}, nil
	}
	return exchange.Balance{}, fmt.Errorf("no USDT balance in account")
}

func (c *Client) FetchPositions(ctx context.Context) ([]exchange.Position, error) {
	risks, err := c.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Position, 0, len(risks))
	for _, r := range risks {
		if r == nil {
			continue
		}
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		side := exchange.PositionLong
		size := amt
		if amt < 0 {
			side = exchange.PositionShort
			size = -amt
		}
		lev, _ := strconv.Atoi(strings.TrimSpace(r.Leverage))
		if lev <= 0 {
			lev = 1
		}
		out = append(out, exchange.Position{
			Pair:             r.Symbol,
			Side:             side,
			Size:             size,
			EntryPrice:       parseFloat(r.EntryPrice),
			MarkPrice:        parseFloat(r.MarkPrice),
			LiquidationPrice: parseFloat(r.LiquidationPrice),
			UnrealizedPnL:    parseFloat(r.UnRealizedProfit),
			Leverage:         lev,
		})
	}
	if len(out) > 0 {
		c.attachTriggerPrices(ctx, out)
	}
	return out, nil
}

// attachTriggerPrices merges the pending stop/take-profit orders into the
// position list so callers see the protection actually in place. Failure to
// list open orders leaves the trigger fields at zero.
func (c *Client) attachTriggerPrices(ctx context.Context, positions []exchange.Position) {
	orders, err := c.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return
	}
	byPair := make(map[string][]*futures.Order)
	for _, o := range orders {
		if o == nil {
			continue
		}
		byPair[o.Symbol] = append(byPair[o.Symbol], o)
	}
	for i := range positions {
		for _, o := range byPair[positions[i].Pair] {
			trigger := parseFloat(o.StopPrice)
			if trigger <= 0 {
				continue
			}
			switch o.Type {
			case futures.OrderTypeStopMarket, futures.OrderTypeStop:
				positions[i].StopLoss = trigger
			case futures.OrderTypeTakeProfitMarket, futures.OrderTypeTakeProfit:
				positions[i].TakeProfit = trigger
			}
		}
	}
}

func (c *Client) FetchCandles(ctx context.Context, pair, interval string, limit int) ([]exchange.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxCandleLimit {
		limit = maxCandleLimit
	}
	pair = strings.TrimSpace(pair)
	if pair == "" {
		return nil, fmt.Errorf("pair is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := c.client.NewKlinesService().Symbol(pair).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, exchange.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out, nil
}

func (c *Client) FetchTicker(ctx context.Context, pair string) (exchange.Ticker, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, err
	}
	for _, st := range stats {
		if st == nil || st.Symbol != pair {
			continue
		}
		return exchange.Ticker{
			Pair:        st.Symbol,
			Last:        parseFloat(st.LastPrice),
			ChangePct:   parseFloat(st.PriceChangePercent),
			QuoteVolume: parseFloat(st.QuoteVolume),
		}, nil
	}
	return exchange.Ticker{}, fmt.Errorf("no ticker for %s", pair)
}

func (c *Client) FetchFundingRate(ctx context.Context, pair string) (float64, error) {
	idx, err := c.client.NewPremiumIndexService().Symbol(pair).Do(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range idx {
		if p != nil && p.Symbol == pair {
			return parseFloat(p.LastFundingRate), nil
		}
	}
	return 0, fmt.Errorf("no premium index for %s", pair)
}

func (c *Client) FetchOpenInterest(ctx context.Context, pair string) (float64, error) {
	oi, err := c.client.NewGetOpenInterestService().Symbol(pair).Do(ctx)
	if err != nil {
		return 0, err
	}
	return parseFloat(oi.OpenInterest), nil
}

func (c *Client) FetchMarketLimits(ctx context.Context, pair string) (exchange.MarketLimits, bool, error) {
	c.limitsMu.Lock()
	cached, ok := c.limits[pair]
	c.limitsMu.Unlock()
	if ok {
		return cached, true, nil
	}
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return exchange.MarketLimits{}, false, err
	}
	c.limitsMu.Lock()
	defer c.limitsMu.Unlock()
	for i := range info.Symbols {
		s := &info.Symbols[i]
		lot := s.LotSizeFilter()
		if lot == nil {
			continue
		}
		limits := exchange.MarketLimits{
			MinQuantity:  parseFloat(lot.MinQuantity),
			MaxQuantity:  parseFloat(lot.MaxQuantity),
			StepSize:     parseFloat(lot.StepSize),
			QtyPrecision: s.QuantityPrecision,
		}
		if mn := s.MinNotionalFilter(); mn != nil {
			limits.MinNotional = parseFloat(mn.Notional)
		}
		c.limits[s.Symbol] = limits
	}
	cached, ok = c.limits[pair]
	return cached, ok, nil
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
