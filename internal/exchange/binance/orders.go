package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"moneyagent/internal/exchange"
	"moneyagent/internal/logger"

	"github.com/adshao/go-binance/v2/futures"
)

func toSideType(side string) (futures.SideType, error) {
	switch side {
	case exchange.SideBuy:
		return futures.SideTypeBuy, nil
	case exchange.SideSell:
		return futures.SideTypeSell, nil
	default:
		return "", fmt.Errorf("unsupported order side %q", side)
	}
}

func oppositeSide(side futures.SideType) futures.SideType {
	if side == futures.SideTypeBuy {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

// formatQty renders a quantity at the pair's precision when known, otherwise
// with the shortest exact representation.
func (c *Client) formatQty(pair string, qty float64) string {
	c.limitsMu.Lock()
	limits, ok := c.limits[pair]
	c.limitsMu.Unlock()
	if ok && limits.QtyPrecision >= 0 {
		return strconv.FormatFloat(qty, 'f', limits.QtyPrecision, 64)
	}
	return strconv.FormatFloat(qty, 'f', -1, 64)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// CreateOrder submits a market order. Binance futures has no atomic
// bracket-entry, so when trigger prices are set the protective orders are
// placed immediately after the entry; a placement failure there is reported
// through the returned error while the entry itself stands.
func (c *Client) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
	side, err := toSideType(req.Side)
	if err != nil {
		return exchange.Order{}, err
	}
	if req.Quantity <= 0 {
		return exchange.Order{}, fmt.Errorf("quantity must be positive, got %v", req.Quantity)
	}
	svc := c.client.NewCreateOrderService().
		Symbol(req.Pair).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(c.formatQty(req.Pair, req.Quantity)).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.Order{}, err
	}
	order := exchange.Order{
		ID:          strconv.FormatInt(resp.OrderID, 10),
		Pair:        resp.Symbol,
		Side:        req.Side,
		AvgPrice:    parseFloat(resp.AvgPrice),
		Price:       parseFloat(resp.Price),
		ExecutedQty: parseFloat(resp.ExecutedQuantity),
		Status:      string(resp.Status),
	}
	if req.ReduceOnly {
		return order, nil
	}

	closeSide := oppositeSide(side)
	var triggerErr error
	if req.StopLoss > 0 {
		if _, err := c.placeTrigger(ctx, req.Pair, closeSide, futures.OrderTypeStopMarket, req.Quantity, req.StopLoss); err != nil {
			logger.Errorf("binance: stop-loss placement for %s failed: %v", req.Pair, err)
			triggerErr = fmt.Errorf("stop-loss order: %w", err)
		}
	}
	if req.TakeProfit > 0 {
		if _, err := c.placeTrigger(ctx, req.Pair, closeSide, futures.OrderTypeTakeProfitMarket, req.Quantity, req.TakeProfit); err != nil {
			logger.Errorf("binance: take-profit placement for %s failed: %v", req.Pair, err)
			if triggerErr == nil {
				triggerErr = fmt.Errorf("take-profit order: %w", err)
			}
		}
	}
	return order, triggerErr
}

func (c *Client) placeTrigger(ctx context.Context, pair string, side futures.SideType, orderType futures.OrderType, quantity, trigger float64) (exchange.Order, error) {
	resp, err := c.client.NewCreateOrderService().
		Symbol(pair).
		Side(side).
		Type(orderType).
		Quantity(c.formatQty(pair, quantity)).
		StopPrice(formatPrice(trigger)).
		ReduceOnly(true).
		WorkingType(futures.WorkingTypeMarkPrice).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return exchange.Order{}, err
	}
	return exchange.Order{
		ID:     strconv.FormatInt(resp.OrderID, 10),
		Pair:   resp.Symbol,
		Status: string(resp.Status),
	}, nil
}

func (c *Client) CreateStopLossOrder(ctx context.Context, pair, closeSide string, quantity, triggerPrice float64) (exchange.Order, error) {
	side, err := toSideType(closeSide)
	if err != nil {
		return exchange.Order{}, err
	}
	return c.placeTrigger(ctx, pair, side, futures.OrderTypeStopMarket, quantity, triggerPrice)
}

func (c *Client) CreateTakeProfitOrder(ctx context.Context, pair, closeSide string, quantity, triggerPrice float64) (exchange.Order, error) {
	side, err := toSideType(closeSide)
	if err != nil {
		return exchange.Order{}, err
	}
	return c.placeTrigger(ctx, pair, side, futures.OrderTypeTakeProfitMarket, quantity, triggerPrice)
}

func (c *Client) FetchOrder(ctx context.Context, pair, orderID string) (exchange.Order, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(orderID), 10, 64)
	if err != nil {
		return exchange.Order{}, fmt.Errorf("order id %q is not numeric: %w", orderID, err)
	}
	o, err := c.client.NewGetOrderService().Symbol(pair).OrderID(id).Do(ctx)
	if err != nil {
		return exchange.Order{}, err
	}
	side := exchange.SideBuy
	if o.Side == futures.SideTypeSell {
		side = exchange.SideSell
	}
	return exchange.Order{
		ID:          strconv.FormatInt(o.OrderID, 10),
		Pair:        o.Symbol,
		Side:        side,
		AvgPrice:    parseFloat(o.AvgPrice),
		Price:       parseFloat(o.Price),
		ExecutedQty: parseFloat(o.ExecutedQuantity),
		Status:      string(o.Status),
	}, nil
}

func (c *Client) FetchMyTrades(ctx context.Context, pair string) ([]exchange.Trade, error) {
	trades, err := c.client.NewListAccountTradeService().Symbol(pair).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Trade, 0, len(trades))
	for _, tr := range trades {
		if tr == nil {
			continue
		}
		out = append(out, exchange.Trade{
			OrderID:  strconv.FormatInt(tr.OrderID, 10),
			Pair:     tr.Symbol,
			Price:    parseFloat(tr.Price),
			Quantity: parseFloat(tr.Quantity),
		})
	}
	return out, nil
}

func (c *Client) SetLeverage(ctx context.Context, pair string, leverage int) error {
	if leverage < 1 {
		return fmt.Errorf("leverage must be at least 1, got %d", leverage)
	}
	_, err := c.client.NewChangeLeverageService().Symbol(pair).Leverage(leverage).Do(ctx)
	return err
}

// SetPositionMode switches between hedge and one-way mode. Binance rejects
// the call with -4059 when the mode is already set; that is not an error.
func (c *Client) SetPositionMode(ctx context.Context, hedge bool) error {
	err := c.client.NewChangePositionModeService().DualSide(hedge).Do(ctx)
	if err != nil && strings.Contains(err.Error(), "-4059") {
		return nil
	}
	return err
}
