package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxScale bounds the fractional digits accepted from user input. Two
// covers every supported currency's minor unit; the extra digits allow
// imported data with sub-cent precision to round-trip.
const maxScale = 6

// Parse converts a user-entered amount string to a decimal. It rejects
// empty input, non-numeric input, and more than maxScale fractional
// digits, so precision problems surface at the boundary instead of deep
// in a balance computation.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -maxScale {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", s, maxScale)
	}
	return d, nil
}

// Format renders an amount for display with exactly two fractional
// digits, e.g. "1234.50". Values carrying more precision keep it.
func Format(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}

// Sum adds a series of amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
