package exchange

// Order sides and position directions use plain strings across the
// codebase; these constants are the only accepted values.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	PositionLong  = "long"
	PositionShort = "short"
)

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type Ticker struct {
	Pair        string
	Last        float64
	ChangePct   float64 // 24h change, percent
	QuoteVolume float64 // 24h quote-currency volume
}

type Balance struct {
	Total     float64
	Available float64
	Used      float64
}

// Position is a live exchange position. StopLoss/TakeProfit are the trigger
// prices of the currently attached protective orders, 0 when unset.
type Position struct {
	Pair             string
	Side             string // PositionLong or PositionShort
	Size             float64
	EntryPrice       float64
	MarkPrice        float64
	LiquidationPrice float64
	UnrealizedPnL    float64
	Leverage         int
	StopLoss         float64
	TakeProfit       float64
}

// MarketLimits describes the exchange-side constraints for one pair.
type MarketLimits struct {
	MinQuantity  float64
	MaxQuantity  float64
	StepSize     float64
	QtyPrecision int
	MinNotional  float64
}

// OrderRequest is a market order, optionally with bracket triggers preset.
// StopLoss/TakeProfit of 0 mean no trigger attached.
type OrderRequest struct {
	Pair       string
	Side       string // SideBuy or SideSell
	Quantity   float64
	ReduceOnly bool
	StopLoss   float64
	TakeProfit float64
}

type Order struct {
	ID          string
	Pair        string
	Side        string
	AvgPrice    float64
	Price       float64
	ExecutedQty float64
	Status      string
}

type Trade struct {
	OrderID  string
	Pair     string
	Price    float64
	Quantity float64
}
