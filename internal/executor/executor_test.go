package executor

import (
	"context"
	"testing"

	"moneyagent/internal/decision"
	"moneyagent/internal/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExchange struct {
	mock.Mock
}

func (m *mockExchange) Name() string { return "mock" }

func (m *mockExchange) FetchBalance(ctx context.Context) (exchange.Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).(exchange.Balance), args.Error(1)
}

func (m *mockExchange) FetchPositions(ctx context.Context) ([]exchange.Position, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]exchange.Position), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExchange) FetchCandles(ctx context.Context, pair, interval string, limit int) ([]exchange.Candle, error) {
	args := m.Called(ctx, pair, interval, limit)
	return nil, args.Error(1)
}

func (m *mockExchange) FetchTicker(ctx context.Context, pair string) (exchange.Ticker, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(exchange.Ticker), args.Error(1)
}

func (m *mockExchange) FetchFundingRate(ctx context.Context, pair string) (float64, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockExchange) FetchOpenInterest(ctx context.Context, pair string) (float64, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockExchange) FetchMarketLimits(ctx context.Context, pair string) (exchange.MarketLimits, bool, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(exchange.MarketLimits), args.Bool(1), args.Error(2)
}

func (m *mockExchange) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.Order), args.Error(1)
}

func (m *mockExchange) FetchOrder(ctx context.Context, pair, orderID string) (exchange.Order, error) {
	args := m.Called(ctx, pair, orderID)
	return args.Get(0).(exchange.Order), args.Error(1)
}

func (m *mockExchange) FetchMyTrades(ctx context.Context, pair string) ([]exchange.Trade, error) {
	args := m.Called(ctx, pair)
	if v := args.Get(0); v != nil {
		return v.([]exchange.Trade), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExchange) SetLeverage(ctx context.Context, pair string, leverage int) error {
	return m.Called(ctx, pair, leverage).Error(0)
}

func (m *mockExchange) SetPositionMode(ctx context.Context, hedge bool) error {
	return m.Called(ctx, hedge).Error(0)
}

func (m *mockExchange) CreateStopLossOrder(ctx context.Context, pair, closeSide string, quantity, triggerPrice float64) (exchange.Order, error) {
	args := m.Called(ctx, pair, closeSide, quantity, triggerPrice)
	return args.Get(0).(exchange.Order), args.Error(1)
}

func (m *mockExchange) CreateTakeProfitOrder(ctx context.Context, pair, closeSide string, quantity, triggerPrice float64) (exchange.Order, error) {
	args := m.Called(ctx, pair, closeSide, quantity, triggerPrice)
	return args.Get(0).(exchange.Order), args.Error(1)
}

func entry(qty float64, leverage int) decision.Decision {
	return decision.Decision{
		Signal:          decision.SignalBuyToEnter,
		Coin:            "BTC",
		Quantity:        qty,
		Leverage:        leverage,
		TakeProfitPrice: 110,
		StopLossPrice:   90,
		Confidence:      0.8,
	}
}

func TestExecuteHoldIsNoOp(t *testing.T) {
	ex := &mockExchange{}
	engine := NewEngine(ex, false)

	res := engine.Execute(context.Background(), decision.Hold("nothing to do"))
	assert.True(t, res.Success)
	assert.Zero(t, res.Quantity)
	ex.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestExecuteRefusesUnprotectedEntry(t *testing.T) {
	ex := &mockExchange{}
	engine := NewEngine(ex, false)

	d := entry(1, 5)
	d.StopLossPrice = 0
	res := engine.Execute(context.Background(), d)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "bracket")
	ex.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestExecuteScalesDownUnaffordableQuantity(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	// balance=$1000, price=$100, leverage=5, requested 100 needs $2000
	// margin; max affordable is 1000*0.95*5/100 = 47.5.
	ex.On("FetchTicker", ctx, "BTCUSDT").Return(exchange.Ticker{Pair: "BTCUSDT", Last: 100}, nil)
	ex.On("FetchBalance", ctx).Return(exchange.Balance{Total: 1000, Available: 1000}, nil)
	ex.On("FetchMarketLimits", ctx, "BTCUSDT").
		Return(exchange.MarketLimits{MinQuantity: 0.001, StepSize: 0.001, QtyPrecision: 3}, true, nil)

	engine := NewEngine(ex, true)
	res := engine.Execute(ctx, entry(100, 5))

	require.True(t, res.Success, res.Err)
	assert.True(t, res.Simulated)
	assert.LessOrEqual(t, res.Quantity, 47.5)
	assert.InDelta(t, 47.5, res.Quantity, 0.01)
	assert.Equal(t, exchange.PositionLong, res.Side)
}

func TestExecuteSizingIsDeterministic(t *testing.T) {
	engine := NewEngine(&mockExchange{}, true)
	limits := exchange.MarketLimits{MinQuantity: 0.001, StepSize: 0.001, QtyPrecision: 3}

	q1, _, ok1 := engine.sizeQuantity(entry(100, 5), 100, 1000, limits)
	q2, _, ok2 := engine.sizeQuantity(entry(100, 5), 100, 1000, limits)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, q1, q2)
}

func TestExecuteFailsWhenMinimumUnaffordable(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	// Minimum 1 BTC at $50000 with 2x leverage needs $25000 margin.
	ex.On("FetchTicker", ctx, "BTCUSDT").Return(exchange.Ticker{Pair: "BTCUSDT", Last: 50000}, nil)
	ex.On("FetchBalance", ctx).Return(exchange.Balance{Total: 100, Available: 100}, nil)
	ex.On("FetchMarketLimits", ctx, "BTCUSDT").
		Return(exchange.MarketLimits{MinQuantity: 1}, true, nil)

	engine := NewEngine(ex, false)
	d := entry(0.5, 2)
	res := engine.Execute(ctx, d)

	assert.False(t, res.Success)
	assert.Equal(t, exchange.ErrInsufficientFunds, res.ErrKind)
	ex.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestExecuteRaisesToMinimumWhenAffordable(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	ex.On("FetchTicker", ctx, "BTCUSDT").Return(exchange.Ticker{Pair: "BTCUSDT", Last: 100}, nil)
	ex.On("FetchBalance", ctx).Return(exchange.Balance{Total: 1000, Available: 1000}, nil)
	ex.On("FetchMarketLimits", ctx, "BTCUSDT").
		Return(exchange.MarketLimits{MinQuantity: 1, StepSize: 1, QtyPrecision: 0}, true, nil)

	engine := NewEngine(ex, true)
	res := engine.Execute(ctx, entry(0.4, 5))

	require.True(t, res.Success, res.Err)
	assert.Equal(t, 1.0, res.Quantity)
}

func TestExecuteFallbackMinimumTable(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	ex.On("FetchTicker", ctx, "DOGEUSDT").Return(exchange.Ticker{Pair: "DOGEUSDT", Last: 0.2}, nil)
	ex.On("FetchBalance", ctx).Return(exchange.Balance{Total: 50, Available: 50}, nil)
	ex.On("FetchMarketLimits", ctx, "DOGEUSDT").
		Return(exchange.MarketLimits{}, false, nil)

	engine := NewEngine(ex, true)
	d := decision.Decision{
		Signal: decision.SignalBuyToEnter, Coin: "DOGE", Quantity: 0.5,
		Leverage: 2, TakeProfitPrice: 0.25, StopLossPrice: 0.18, Confidence: 0.8,
	}
	res := engine.Execute(ctx, d)

	// The DOGE fallback minimum of 1 applies and is affordable.
	require.True(t, res.Success, res.Err)
	assert.Equal(t, 1.0, res.Quantity)
}

func TestExecuteEntryPlacesOrderAndVerifiesProtection(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	ex.On("FetchTicker", ctx, "BTCUSDT").Return(exchange.Ticker{Pair: "BTCUSDT", Last: 100}, nil)
	ex.On("FetchBalance", ctx).Return(exchange.Balance{Total: 10000, Available: 10000}, nil)
	ex.On("FetchMarketLimits", ctx, "BTCUSDT").
		Return(exchange.MarketLimits{MinQuantity: 0.001, StepSize: 0.001, QtyPrecision: 3}, true, nil)
	ex.On("SetPositionMode", ctx, false).Return(nil)
	ex.On("SetLeverage", ctx, "BTCUSDT", 5).Return(nil)
	ex.On("CreateOrder", ctx, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Pair == "BTCUSDT" && req.Side == exchange.SideBuy &&
			!req.ReduceOnly && req.StopLoss == 90 && req.TakeProfit == 110
	})).Return(exchange.Order{ID: "42", Pair: "BTCUSDT", AvgPrice: 100.5, ExecutedQty: 2, Status: "FILLED"}, nil)
	// Stop-loss attached, take-profit missing: one corrective order expected.
	ex.On("FetchPositions", ctx).Return([]exchange.Position{{
		Pair: "BTCUSDT", Side: exchange.PositionLong, Size: 2, StopLoss: 90,
	}}, nil)
	ex.On("CreateTakeProfitOrder", ctx, "BTCUSDT", exchange.SideSell, 2.0, 110.0).
		Return(exchange.Order{ID: "43"}, nil)

	engine := NewEngine(ex, false)
	res := engine.Execute(ctx, entry(2, 5))

	require.True(t, res.Success, res.Err)
	assert.Equal(t, "42", res.OrderID)
	assert.Equal(t, 100.5, res.Price)
	assert.Equal(t, 2.0, res.Quantity)
	ex.AssertExpectations(t)
	// Order average was present, so the refetch and VWAP fallbacks never ran.
	ex.AssertNotCalled(t, "FetchOrder", mock.Anything, mock.Anything, mock.Anything)
	ex.AssertNotCalled(t, "FetchMyTrades", mock.Anything, mock.Anything)
}

func TestExecuteFillFallsBackToVWAP(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	ex.On("FetchTicker", ctx, "BTCUSDT").Return(exchange.Ticker{Pair: "BTCUSDT", Last: 100}, nil)
	ex.On("FetchBalance", ctx).Return(exchange.Balance{Total: 10000, Available: 10000}, nil)
	ex.On("FetchMarketLimits", ctx, "BTCUSDT").
		Return(exchange.MarketLimits{MinQuantity: 0.001, StepSize: 0.001, QtyPrecision: 3}, true, nil)
	ex.On("SetPositionMode", ctx, false).Return(nil)
	ex.On("SetLeverage", ctx, "BTCUSDT", 5).Return(nil)
	ex.On("CreateOrder", ctx, mock.Anything).
		Return(exchange.Order{ID: "7", Pair: "BTCUSDT", Status: "NEW"}, nil)
	ex.On("FetchOrder", ctx, "BTCUSDT", "7").
		Return(exchange.Order{ID: "7", Status: "NEW"}, nil)
	ex.On("FetchMyTrades", ctx, "BTCUSDT").Return([]exchange.Trade{
		{OrderID: "7", Price: 100, Quantity: 1},
		{OrderID: "7", Price: 102, Quantity: 1},
		{OrderID: "other", Price: 999, Quantity: 5},
	}, nil)
	ex.On("FetchPositions", ctx).Return([]exchange.Position{{
		Pair: "BTCUSDT", Side: exchange.PositionLong, Size: 2, StopLoss: 90, TakeProfit: 110,
	}}, nil)

	engine := NewEngine(ex, false)
	res := engine.Execute(ctx, entry(2, 5))

	require.True(t, res.Success, res.Err)
	assert.Equal(t, 101.0, res.Price)
}

func TestExecuteCloseWithoutPosition(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()
	ex.On("FetchPositions", ctx).Return([]exchange.Position{}, nil)

	engine := NewEngine(ex, false)
	res := engine.Execute(ctx, decision.Decision{Signal: decision.SignalClose, Coin: "BTC"})

	assert.False(t, res.Success)
	assert.Equal(t, exchange.ErrNotFound, res.ErrKind)
	ex.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestExecuteCloseReportsOriginalDirection(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	ex.On("FetchPositions", ctx).Return([]exchange.Position{{
		Pair: "ETHUSDT", Side: exchange.PositionShort, Size: 3, MarkPrice: 2000,
	}}, nil)
	ex.On("CreateOrder", ctx, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Pair == "ETHUSDT" && req.Side == exchange.SideBuy &&
			req.ReduceOnly && req.Quantity == 3
	})).Return(exchange.Order{ID: "9", Pair: "ETHUSDT", AvgPrice: 1990}, nil)
	ex.On("FetchTicker", ctx, "ETHUSDT").Return(exchange.Ticker{Pair: "ETHUSDT", Last: 1991}, nil)

	engine := NewEngine(ex, false)
	res := engine.Execute(ctx, decision.Decision{Signal: decision.SignalClose, Coin: "ETH"})

	require.True(t, res.Success, res.Err)
	assert.Equal(t, exchange.PositionShort, res.Side)
	assert.Equal(t, 3.0, res.Quantity)
	assert.Equal(t, 1990.0, res.Price)
}

func TestExecuteClassifiesExchangeRejection(t *testing.T) {
	ex := &mockExchange{}
	ctx := context.Background()

	ex.On("FetchTicker", ctx, "BTCUSDT").Return(exchange.Ticker{Pair: "BTCUSDT", Last: 100}, nil)
	ex.On("FetchBalance", ctx).Return(exchange.Balance{Total: 10000, Available: 10000}, nil)
	ex.On("FetchMarketLimits", ctx, "BTCUSDT").
		Return(exchange.MarketLimits{MinQuantity: 0.001, StepSize: 0.001, QtyPrecision: 3}, true, nil)
	ex.On("SetPositionMode", ctx, false).Return(nil)
	ex.On("SetLeverage", ctx, "BTCUSDT", 5).Return(nil)
	ex.On("CreateOrder", ctx, mock.Anything).
		Return(exchange.Order{}, assert.AnError)

	engine := NewEngine(ex, false)
	res := engine.Execute(ctx, entry(2, 5))

	assert.False(t, res.Success)
	assert.Equal(t, exchange.ErrUnknown, res.ErrKind)
	assert.Contains(t, res.Err, "create order")
}
