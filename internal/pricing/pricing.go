// Package pricing computes the monetary cost of OCR usage.
package pricing

import "fmt"

// Amount is a monetary value.
type Amount struct {
	Value    float64 `json:"value" yaml:"value"`
	Currency string  `json:"currency" yaml:"currency"`
}

func (a Amount) String() string {
	return fmt.Sprintf("%.4f %s", a.Value, a.Currency)
}

// CostFn maps the provider-reported pages-processed count to a cost.
// Implementations must be pure.
type CostFn func(pagesProcessed int) Amount

// perPageUSD matches the provider's published OCR rate ($1 per 1000 pages).
const perPageUSD = 0.001

// PerPage returns a cost function billing a flat rate per processed page.
func PerPage(rate float64, currency string) CostFn {
	return func(pagesProcessed int) Amount {
		if pagesProcessed < 0 {
			pagesProcessed = 0
		}
		return Amount{Value: rate * float64(pagesProcessed), Currency: currency}
	}
}

// Default returns the standard USD per-page cost function.
func Default() CostFn {
	return PerPage(perPageUSD, "USD")
}
