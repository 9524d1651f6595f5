// Package symbol maps the coin names used in configuration and oracle
// output ("BTC", "DOGE") onto exchange trading pairs.
package symbol

import "strings"

// QuoteCurrency is the stake currency for every tradable pair. The agent
// trades USDT-margined perpetuals only.
const QuoteCurrency = "USDT"

// Normalize upper-cases and trims a coin name ("doge " -> "DOGE").
func Normalize(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin))
}

// NormalizeList normalizes and de-duplicates a coin list, preserving order.
func NormalizeList(coins []string) []string {
	if len(coins) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(coins))
	out := make([]string, 0, len(coins))
	for _, c := range coins {
		norm := Normalize(c)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// Pair converts a coin into the exchange pair symbol ("BTC" -> "BTCUSDT").
func Pair(coin string) string {
	norm := Normalize(coin)
	if norm == "" {
		return ""
	}
	return norm + QuoteCurrency
}
