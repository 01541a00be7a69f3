// Package amount implements the fixed-width unsigned arithmetic used for
// reserves, share balances and transfer values. Every value is an unsigned
// 256-bit integer; every operation is checked and returns an error instead
// of wrapping on overflow or underflow.
package amount

import (
	"fmt"
	"math/big"
)

const bitWidth = 256

// maxUint256 is 2^256 - 1, the largest representable Amount.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bitWidth), big.NewInt(1))

// e18 is the fixed-point scale used for price quotations.
var e18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Amount is an immutable unsigned 256-bit integer. The zero value is a
// usable zero Amount. Operations never mutate their receiver.
type Amount struct {
	v *big.Int
}

// Zero returns the zero Amount.
func Zero() Amount {
	return Amount{}
}

// Max returns the largest representable Amount (2^256 - 1).
func Max() Amount {
	return Amount{v: new(big.Int).Set(maxUint256)}
}

// E18 returns 10^18, the price scale unit.
func E18() Amount {
	return Amount{v: new(big.Int).Set(e18)}
}

// FromUint64 converts a uint64 into an Amount.
func FromUint64(u uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(u)}
}

// FromBig converts a big integer into an Amount. It fails if the value is
// negative or wider than 256 bits.
func FromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, nil
	}
	if v.Sign() < 0 {
		return Amount{}, ErrNegative
	}
	if v.Cmp(maxUint256) > 0 {
		return Amount{}, ErrOverflow
	}
	return Amount{v: new(big.Int).Set(v)}, nil
}

// Parse converts a base-10 string into an Amount.
func Parse(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q is not a base-10 integer", ErrInvalidAmount, s)
	}
	return FromBig(v)
}

// MustParse is Parse for static values; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic("amount: " + err.Error())
	}
	return a
}

// big returns the underlying value, treating the zero Amount as 0.
func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// BigInt returns a copy of the underlying value.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.big())
}

// IsZero reports whether the Amount is zero.
func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// Cmp compares a and b, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.Cmp(b) < 0
}

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool {
	return a.Cmp(b) > 0
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Add returns a + b, failing with ErrOverflow above 2^256 - 1.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := new(big.Int).Add(a.big(), b.big())
	if sum.Cmp(maxUint256) > 0 {
		return Amount{}, ErrOverflow
	}
	return Amount{v: sum}, nil
}

// Sub returns a - b, failing with ErrUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Amount{}, ErrUnderflow
	}
	return Amount{v: new(big.Int).Sub(a.big(), b.big())}, nil
}

// Mul returns a * b, failing with ErrOverflow above 2^256 - 1.
func (a Amount) Mul(b Amount) (Amount, error) {
	prod := new(big.Int).Mul(a.big(), b.big())
	if prod.Cmp(maxUint256) > 0 {
		return Amount{}, ErrOverflow
	}
	return Amount{v: prod}, nil
}

// Div returns floor(a / b), failing with ErrDivisionByZero when b is zero.
func (a Amount) Div(b Amount) (Amount, error) {
	if b.IsZero() {
		return Amount{}, ErrDivisionByZero
	}
	return Amount{v: new(big.Int).Quo(a.big(), b.big())}, nil
}

// MulDiv returns floor(a * b / c). The intermediate product is subject to
// the same 256-bit bound as every other operation.
func (a Amount) MulDiv(b, c Amount) (Amount, error) {
	prod, err := a.Mul(b)
	if err != nil {
		return Amount{}, err
	}
	return prod.Div(c)
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.big().String()
}

// Bytes returns the big-endian byte representation (empty for zero).
func (a Amount) Bytes() []byte {
	return a.big().Bytes()
}

// FromBytes converts a big-endian byte slice into an Amount.
func FromBytes(b []byte) (Amount, error) {
	return FromBig(new(big.Int).SetBytes(b))
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
