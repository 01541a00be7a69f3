package testing

import (
	"github.com/LeJamon/goAMMd/internal/core/amount"
)

// Amt parses a base-10 amount, panicking on malformed input. It keeps
// fixture tables compact.
func Amt(s string) amount.Amount {
	return amount.MustParse(s)
}

// Units returns n scaled by 1e18, the whole-unit size used in scenario
// tests. Prices are quoted at the same scale, so pools seeded with Units
// report exact whole-number prices.
func Units(n int64) amount.Amount {
	if n < 0 {
		panic("testing: negative unit count")
	}
	u, err := amount.FromUint64(uint64(n)).Mul(amount.E18())
	if err != nil {
		panic("testing: unit count overflows: " + err.Error())
	}
	return u
}
