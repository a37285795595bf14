package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy computes the tax owed on a sale subtotal. The sales service treats it
// as an opaque function of the subtotal.
type Policy interface {
	TaxCents(subtotalCents int64) int64
}

type flatRate struct {
	rate decimal.Decimal
}

// NewFlatRate builds a policy charging a fixed percentage of the subtotal,
// rounded half-up to the cent. The rate arrives as a string so config can
// express fractional percentages exactly.
func NewFlatRate(ratePercent string) (Policy, error) {
	rate, err := decimal.NewFromString(ratePercent)
	if err != nil {
		return nil, fmt.Errorf("parsing tax rate %q: %w", ratePercent, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	return flatRate{rate: rate}, nil
}

func (f flatRate) TaxCents(subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).
		Mul(f.rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
