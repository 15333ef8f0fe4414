// Package pricing estimates model call cost from token counts using a
// static per-model price table with linear pricing.
package pricing

// Rate holds per-token USD prices for one model.
type Rate struct {
	Input  float64
	Output float64
}

// perMillion converts a USD-per-million-tokens price to a per-token rate.
func perMillion(usd float64) float64 {
	return usd / 1_000_000
}

// table maps model identifiers to their per-token rates.
var table = map[string]Rate{
	"gpt-4o":        {Input: perMillion(2.50), Output: perMillion(10.00)},
	"gpt-4o-mini":   {Input: perMillion(0.150), Output: perMillion(0.600)},
	"gpt-4.1":       {Input: perMillion(2.00), Output: perMillion(8.00)},
	"gpt-4.1-mini":  {Input: perMillion(0.40), Output: perMillion(1.60)},
	"o3-mini":       {Input: perMillion(1.10), Output: perMillion(4.40)},
	"gpt-3.5-turbo": {Input: perMillion(0.50), Output: perMillion(1.50)},
}

// defaultRate applies to unknown models. Unknown models never fail a
// call; they degrade to this rate.
var defaultRate = Rate{}

// Lookup returns the rate for a model, falling back to the default rate.
func Lookup(model string) Rate {
	if r, ok := table[model]; ok {
		return r
	}
	return defaultRate
}

// Estimate computes the USD cost of one call.
func Estimate(model string, promptTokens, completionTokens int) float64 {
	r := Lookup(model)
	return float64(promptTokens)*r.Input + float64(completionTokens)*r.Output
}
