package amount

import "math/big"

// Sqrt returns floor(sqrt(y)) using the Babylonian (Newton) iteration on
// integers. Candidates only ever shrink, so the loop converges to the
// floor in O(log y) steps: Sqrt(0) = 0 and Sqrt(y) = 1 for y in [1, 3].
func Sqrt(y Amount) Amount {
	yv := y.big()
	if yv.Sign() == 0 {
		return Zero()
	}
	three := big.NewInt(3)
	if yv.Cmp(three) <= 0 {
		return FromUint64(1)
	}

	z := new(big.Int).Set(yv)
	// x = y/2 + 1
	x := new(big.Int).Rsh(yv, 1)
	x.Add(x, big.NewInt(1))

	t := new(big.Int)
	for x.Cmp(z) < 0 {
		z.Set(x)
		// x = (y/x + x) / 2
		t.Quo(yv, x)
		t.Add(t, x)
		x.Rsh(t, 1)
	}
	return Amount{v: z}
}
