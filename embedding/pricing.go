package embedding

// pricePer1K is the provider list price in USD per 1,000 tokens.
var pricePer1K = map[string]float64{
	"text-embedding-3-small": 0.00002,
	"text-embedding-3-large": 0.00013,
	"text-embedding-ada-002": 0.0001,
}

const defaultPricePer1K = 0.00002

// PricePer1K returns the per-1,000-token price for model. Unknown models are
// priced like text-embedding-3-small.
func PricePer1K(model string) float64 {
	if p, ok := pricePer1K[model]; ok {
		return p
	}
	return defaultPricePer1K
}

// CostFor estimates the USD cost of embedding tokens with model.
func CostFor(model string, tokens int) float64 {
	return float64(tokens) / 1000 * PricePer1K(model)
}

// CostEstimate is an approximate embedding cost. Token counts use the
// chars/4 estimate and are not billing-accurate.
type CostEstimate struct {
	TotalTokens   int
	EstimatedCost float64
	Model         string
}
