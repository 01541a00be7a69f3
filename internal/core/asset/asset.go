// Package asset defines asset identifiers and trading pairs.
package asset

import (
	"errors"
	"fmt"
	"strings"
)

const maxCodeLength = 20

var (
	// ErrInvalidAsset indicates an empty or malformed asset code
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrDuplicateAsset indicates a pair built from a single asset
	ErrDuplicateAsset = errors.New("duplicate asset")
)

// Asset identifies a fungible asset by its code. The zero value is not a
// valid asset.
type Asset string

// Validate checks that the asset code is usable as an identifier.
func (a Asset) Validate() error {
	if a.IsZero() {
		return fmt.Errorf("%w: empty code", ErrInvalidAsset)
	}
	if len(a) > maxCodeLength {
		return fmt.Errorf("%w: code %q exceeds %d characters", ErrInvalidAsset, string(a), maxCodeLength)
	}
	for _, r := range a {
		valid := r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		if !valid {
			return fmt.Errorf("%w: code %q contains %q", ErrInvalidAsset, string(a), r)
		}
	}
	return nil
}

// IsZero reports whether the asset is the zero identifier.
func (a Asset) IsZero() bool {
	return a == ""
}

// String returns the asset code.
func (a Asset) String() string {
	return string(a)
}

// Pair is an unordered asset pair in canonical form: Base sorts strictly
// before Quote.
type Pair struct {
	Base  Asset
	Quote Asset
}

// NewPair validates both assets and returns the canonically ordered pair.
func NewPair(a, b Asset) (Pair, error) {
	if err := a.Validate(); err != nil {
		return Pair{}, err
	}
	if err := b.Validate(); err != nil {
		return Pair{}, err
	}
	if a == b {
		return Pair{}, fmt.Errorf("%w: %s", ErrDuplicateAsset, a)
	}
	if b < a {
		a, b = b, a
	}
	return Pair{Base: a, Quote: b}, nil
}

// ParsePair parses a "BASE/QUOTE" string into a canonical pair.
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok {
		return Pair{}, fmt.Errorf("%w: pair %q is not of the form BASE/QUOTE", ErrInvalidAsset, s)
	}
	return NewPair(Asset(base), Asset(quote))
}

// Contains reports whether the pair includes the asset.
func (p Pair) Contains(a Asset) bool {
	return p.Base == a || p.Quote == a
}

// Other returns the counter asset of a within the pair.
func (p Pair) Other(a Asset) (Asset, bool) {
	switch a {
	case p.Base:
		return p.Quote, true
	case p.Quote:
		return p.Base, true
	}
	return "", false
}

// Key returns the stable storage key for the pair.
func (p Pair) Key() string {
	return string(p.Base) + "/" + string(p.Quote)
}

// String returns "BASE/QUOTE".
func (p Pair) String() string {
	return p.Key()
}
