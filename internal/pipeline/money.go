package pipeline

import (
	"math"

	"github.com/shopspring/decimal"
)

// dec converts f to a decimal. Non-finite values become zero.
func dec(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// cents rounds d to two decimal places.
func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// mulCents returns a×b rounded to cents.
func mulCents(a, b float64) float64 {
	return cents(dec(a).Mul(dec(b)))
}
