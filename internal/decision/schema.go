package decision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// decisionSchema is the structured-output contract the oracle must satisfy.
// The coin set is intentionally open here; symbol whitelisting happens in the
// risk gate against the configured universe.
const decisionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["signal", "coin", "quantity", "leverage", "take_profit_price", "stop_loss_price", "confidence", "risk_usd", "justification"],
  "properties": {
    "signal": {"type": "string", "enum": ["buy_to_enter", "sell_to_enter", "hold", "close"]},
    "coin": {"type": "string"},
    "quantity": {"type": "number", "minimum": 0},
    "leverage": {"type": "integer", "minimum": 1, "maximum": 20},
    "take_profit_price": {"type": "number", "minimum": 0},
    "stop_loss_price": {"type": "number", "minimum": 0},
    "invalidation_condition": {"type": "string", "maxLength": 200},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "risk_usd": {"type": "number", "minimum": 0},
    "justification": {"type": "string", "maxLength": 800}
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("decision.json", strings.NewReader(decisionSchema)); err != nil {
		panic(fmt.Sprintf("decision schema resource: %v", err))
	}
	schema, err := compiler.Compile("decision.json")
	if err != nil {
		panic(fmt.Sprintf("decision schema compile: %v", err))
	}
	return schema
}

// numericFields are coerced from string form before validation; the oracle
// occasionally returns "quantity": "0.5".
var numericFields = map[string]bool{
	"quantity":          true,
	"take_profit_price": true,
	"stop_loss_price":   true,
	"confidence":        true,
	"risk_usd":          true,
	"leverage":          true,
}

// ValidateSchema checks a decoded decision document against the contract.
func ValidateSchema(doc any) error {
	return compiledSchema.Validate(sanitizeNumbers(doc))
}

func sanitizeNumbers(v any) any {
	root, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(root))
	for k, child := range root {
		if s, isStr := child.(string); isStr && numericFields[k] {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				out[k] = f
				continue
			}
		}
		out[k] = child
	}
	return out
}
