package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"moneyagent/internal/pkg/jsonutil"
	"moneyagent/internal/pkg/symbol"

	"github.com/tidwall/gjson"
)

// Parse turns a raw oracle reply into a typed Decision. The reply may wrap
// the JSON in fences or prose; the payload is schema-checked before any
// field is trusted.
func Parse(raw string) (Decision, error) {
	payload, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return Decision{}, fmt.Errorf("no JSON object in oracle reply")
	}
	if !gjson.Valid(payload) {
		return Decision{}, fmt.Errorf("oracle reply is not valid JSON")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return Decision{}, fmt.Errorf("decode oracle reply: %w", err)
	}
	if err := ValidateSchema(doc); err != nil {
		return Decision{}, fmt.Errorf("oracle reply violates decision schema: %w", err)
	}

	parsed := gjson.Parse(payload)
	d := Decision{
		Signal:                strings.ToLower(strings.TrimSpace(parsed.Get("signal").String())),
		Coin:                  symbol.Normalize(parsed.Get("coin").String()),
		Quantity:              parsed.Get("quantity").Float(),
		Leverage:              int(parsed.Get("leverage").Int()),
		TakeProfitPrice:       parsed.Get("take_profit_price").Float(),
		StopLossPrice:         parsed.Get("stop_loss_price").Float(),
		InvalidationCondition: strings.TrimSpace(parsed.Get("invalidation_condition").String()),
		Confidence:            parsed.Get("confidence").Float(),
		RiskUSD:               parsed.Get("risk_usd").Float(),
		Justification:         strings.TrimSpace(parsed.Get("justification").String()),
	}
	if !ValidSignal(d.Signal) {
		return Decision{}, fmt.Errorf("unknown signal %q", d.Signal)
	}
	if d.Leverage < 1 {
		d.Leverage = 1
	}
	return d, nil
}
