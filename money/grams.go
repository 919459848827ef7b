// Package money implements the grams amount and currency-collection model
// of spec.md §4.A: a non-negative, variable-length-encoded integer with
// checked/saturating arithmetic, plus a sparse extra-currency map.
package money

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// MaxGramsLen is the maximum encodable length prefix (4 bits -> 0..15),
// each unit being 8 bits of value, so the representable range is
// [0, 2^120 - 1].
const MaxGramsLen = 15

// maxGrams is 2^120 - 1, the largest value representable by a 15-byte
// length-prefixed grams amount.
var maxGrams = func() *uint256.Int {
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, 120)
	return new(uint256.Int).Sub(shifted, one)
}()

var (
	// ErrOverflow is returned when an addition would exceed the maximum
	// representable grams amount.
	ErrOverflow = errors.New("money: grams overflow")
	// ErrUnderflow is returned when a subtraction's subtrahend exceeds the
	// minuend (grams are never negative).
	ErrUnderflow = errors.New("money: grams underflow")
)

// Grams is a non-negative amount backed by a fixed-width 256-bit integer;
// spec.md only requires up to 120 bits, so uint256.Int is a strict
// superset used for its checked-arithmetic primitives.
type Grams struct {
	v uint256.Int
}

// Zero is the additive identity.
var Zero = Grams{}

// NewGrams constructs a Grams value from a uint64.
func NewGrams(v uint64) Grams {
	var g Grams
	g.v.SetUint64(v)
	return g
}

// FromUint256 wraps an existing uint256.Int, erroring if it exceeds the
// maximum representable grams amount.
func FromUint256(v *uint256.Int) (Grams, error) {
	if v.Gt(maxGrams) {
		return Grams{}, fmt.Errorf("%w: %s exceeds 2^120-1", ErrOverflow, v.Dec())
	}
	var g Grams
	g.v.Set(v)
	return g, nil
}

// Uint256 returns a fresh copy of the underlying value; mutating it does
// not affect g.
func (g Grams) Uint256() *uint256.Int { return new(uint256.Int).Set(&g.v) }

// Uint64 returns the value truncated to 64 bits; callers must have already
// established the value fits (e.g. after a gas-price computation).
func (g Grams) Uint64() uint64 { return g.v.Uint64() }

// IsZero reports whether g is zero.
func (g Grams) IsZero() bool { return g.v.IsZero() }

// Cmp performs a total ordering comparison: -1, 0, or 1.
func (g Grams) Cmp(o Grams) int { return g.v.Cmp(&o.v) }

// Add returns g+o, failing with ErrOverflow if the result would exceed the
// maximum representable grams amount.
func (g Grams) Add(o Grams) (Grams, error) {
	sum, carry := new(uint256.Int).AddOverflow(&g.v, &o.v)
	if carry || sum.Gt(maxGrams) {
		return Grams{}, fmt.Errorf("%w: %s + %s", ErrOverflow, g.v.Dec(), o.v.Dec())
	}
	return Grams{v: *sum}, nil
}

// Sub returns g-o, failing with ErrUnderflow if o > g.
func (g Grams) Sub(o Grams) (Grams, error) {
	if g.v.Lt(&o.v) {
		return Grams{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, g.v.Dec(), o.v.Dec())
	}
	diff := new(uint256.Int).Sub(&g.v, &o.v)
	return Grams{v: *diff}, nil
}

// SaturatingSub returns g-o, clamped to zero instead of erroring when o > g.
// Used by the Storage phase, where an underpaid account simply pays down to
// zero and accrues the remainder as due_payment rather than failing.
func (g Grams) SaturatingSub(o Grams) Grams {
	if g.v.Lt(&o.v) {
		return Zero
	}
	diff := new(uint256.Int).Sub(&g.v, &o.v)
	return Grams{v: *diff}
}

// Min returns the smaller of g and o.
func (g Grams) Min(o Grams) Grams {
	if g.Cmp(o) <= 0 {
		return g
	}
	return o
}

// String renders the decimal value.
func (g Grams) String() string { return g.v.Dec() }

// EncodedLen returns the `len` nibble (0..15) the variable-length encoding
// of §4.A would use: the minimal number of bytes needed to hold g.
func (g Grams) EncodedLen() int {
	n := 0
	tmp := new(uint256.Int).Set(&g.v)
	for !tmp.IsZero() {
		tmp.Rsh(tmp, 8)
		n++
	}
	return n
}
