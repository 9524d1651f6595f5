package decision

import (
	"fmt"
	"strings"

	"moneyagent/internal/exchange"
	"moneyagent/internal/market"
)

// PromptContext carries everything the oracle is shown for one cycle.
type PromptContext struct {
	MinutesElapsed int
	Snapshots      []market.Snapshot
	Regime         market.Regime
	Balance        exchange.Balance
	Positions      []exchange.Position
	ActiveCoins    []string
	Restricted     bool
	ReturnPct      float64
	SharpeRatio    float64
	RecentTrades   []string
}

const defaultSystemPrompt = `You are an autonomous trading agent operating a leveraged USDT-margined perpetual futures account. Each cycle you receive fresh multi-timeframe market data, your current account state and open positions, and you must answer with exactly one JSON object, no prose before or after, matching this contract:

{
  "signal": "buy_to_enter" | "sell_to_enter" | "hold" | "close",
  "coin": "<symbol from the active list>",
  "quantity": <coin amount, 0 for hold>,
  "leverage": <integer 1-20, 1 for hold>,
  "take_profit_price": <price, required > 0 for entries>,
  "stop_loss_price": <price, required > 0 for entries>,
  "invalidation_condition": "<what would invalidate this trade, max 200 chars>",
  "confidence": <0.0-1.0>,
  "risk_usd": <dollar amount at risk>,
  "justification": "<reasoning, max 800 chars>"
}

Hard rules:
- Only trade coins from the active symbol list you are given. Closing an existing position is always allowed.
- Every entry must carry both a stop-loss and a take-profit price on the correct side of the current price.
- Never risk more than the available balance supports at the chosen leverage.
- When in doubt, hold. Capital preservation beats forced activity.`

// SystemPrompt returns the built-in instructions; file overrides are layered
// on by PromptWatcher.
func SystemPrompt() string { return defaultSystemPrompt }

// BuildUserPrompt renders the per-cycle context block the oracle reasons
// over. Sections follow a fixed order so replies stay comparable across
// cycles.
func BuildUserPrompt(pc PromptContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Minutes elapsed in this session: %d\n\n", pc.MinutesElapsed)

	b.WriteString("## Account\n")
	fmt.Fprintf(&b, "- Account value: $%.2f\n", pc.Balance.Total)
	fmt.Fprintf(&b, "- Cash available: $%.2f\n", pc.Balance.Available)
	fmt.Fprintf(&b, "- Session return: %.2f%%\n", pc.ReturnPct)
	fmt.Fprintf(&b, "- Sharpe ratio: %.4f\n", pc.SharpeRatio)
	mode := "full"
	if pc.Restricted {
		mode = "restricted (low equity)"
	}
	fmt.Fprintf(&b, "- Trading mode: %s\n", mode)
	fmt.Fprintf(&b, "- Active symbols for new entries: %s\n\n", strings.Join(pc.ActiveCoins, ", "))

	b.WriteString("## Open positions\n")
	if len(pc.Positions) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, p := range pc.Positions {
			fmt.Fprintf(&b, "- %s %s size=%s entry=%s mark=%s liq=%s uPnL=$%.2f lev=%dx sl=%s tp=%s\n",
				p.Pair, p.Side,
				formatQty(p.Size), formatPrice(p.EntryPrice), formatPrice(p.MarkPrice),
				formatPrice(p.LiquidationPrice), p.UnrealizedPnL, p.Leverage,
				formatTrigger(p.StopLoss), formatTrigger(p.TakeProfit))
		}
		b.WriteString("\n")
	}

	if len(pc.RecentTrades) > 0 {
		b.WriteString("## Recent trades\n")
		for _, line := range pc.RecentTrades {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Market regime\n%s\n\n", pc.Regime.Label)

	b.WriteString("## Market data\n\n")
	for _, snap := range pc.Snapshots {
		b.WriteString(formatCoinSection(snap, pc.Regime.TrendByCoin[snap.Coin]))
	}
	return b.String()
}

func formatCoinSection(snap market.Snapshot, trend string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", snap.Coin)
	if !snap.OK {
		fmt.Fprintf(&b, "Data unavailable this cycle: %s\n\n", snap.Err)
		return b.String()
	}

	fast := snap.Indicators[market.FastInterval]
	slow := snap.Indicators[market.SlowInterval]

	b.WriteString("**Current snapshot:**\n")
	fmt.Fprintf(&b, "- Price: %s (24h %+.2f%%)\n", formatPrice(snap.Price()), snap.Ticker.ChangePct)
	fmt.Fprintf(&b, "- EMA(20) 3m: %s\n", formatIndicator(fast.EMA20))
	fmt.Fprintf(&b, "- MACD 3m: %s\n", formatMACD(fast.MACD))
	fmt.Fprintf(&b, "- RSI(7) 3m: %s\n", formatIndicator(fast.RSI7))
	fmt.Fprintf(&b, "- Trend (4h): %s\n", trend)

	b.WriteString("**Perpetual metrics:**\n")
	fmt.Fprintf(&b, "- Open interest: %.0f\n", snap.OpenInterest)
	fmt.Fprintf(&b, "- Funding rate: %.6f%s\n", snap.FundingRate, fundingNote(snap.FundingRate))

	b.WriteString("**Intraday series (3m, oldest to newest):**\n")
	fmt.Fprintf(&b, "- RSI(7): %s\n", formatSeries(fast.RSI7))
	fmt.Fprintf(&b, "- RSI(14): %s\n", formatSeries(fast.RSI14))
	fmt.Fprintf(&b, "- ATR(3): %s\n", formatSeries(fast.ATR3))

	b.WriteString("**4h context:**\n")
	fmt.Fprintf(&b, "- EMA(20): %s, EMA(50): %s\n", formatIndicator(slow.EMA20), formatIndicator(slow.EMA50))
	fmt.Fprintf(&b, "- MACD: %s\n", formatMACD(slow.MACD))
	fmt.Fprintf(&b, "- RSI(14): %s\n", formatIndicator(slow.RSI14))
	fmt.Fprintf(&b, "- ATR(14): %s\n\n", formatIndicator(slow.ATR14))
	return b.String()
}

func fundingNote(rate float64) string {
	switch {
	case rate > 0.0001:
		return " (longs pay shorts, bullish crowd)"
	case rate < -0.0001:
		return " (shorts pay longs, bearish crowd)"
	default:
		return " (neutral)"
	}
}

func formatIndicator(v *market.IndicatorValue) string {
	if v == nil {
		return "N/A"
	}
	return formatFloat(v.Latest)
}

func formatMACD(v *market.MACDValue) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("line=%s signal=%s hist=%s",
		formatFloat(v.Line), formatFloat(v.Signal), formatFloat(v.Histogram))
}

func formatSeries(v *market.IndicatorValue) string {
	if v == nil || len(v.Series) == 0 {
		return "N/A"
	}
	parts := make([]string, len(v.Series))
	for i, f := range v.Series {
		parts[i] = formatFloat(f)
	}
	return strings.Join(parts, ", ")
}

// formatPrice scales decimal places to the price magnitude so sub-dollar
// coins keep meaningful digits.
func formatPrice(p float64) string {
	if p <= 0 {
		return "N/A"
	}
	if p >= 1 {
		return fmt.Sprintf("$%.4f", p)
	}
	return fmt.Sprintf("$%.8f", p)
}

func formatTrigger(p float64) string {
	if p <= 0 {
		return "unset"
	}
	return formatPrice(p)
}

func formatQty(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", q), "0"), ".")
}

func formatFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}
