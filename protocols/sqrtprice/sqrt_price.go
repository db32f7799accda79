package sqrtprice

import (
	"fmt"
	"math/big"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// Resolution is the number of fractional bits in the Q64.64 format.
	Resolution = uint(64)

	// Q64 is the Q64.64 fixed-point number representing 1.
	Q64 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution)

	// MaxUint128 is 2^128 - 1, the ceiling of every value this package produces.
	MaxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

	// q128 is 2^128 as a decimal, the divisor of a squared Q64.64 value.
	q128 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)
)

// DecimalPlaces is the precision of the decimal price kept for reports.
const DecimalPlaces = 18

// PriceFromSqrtPriceX64 writes (s >> 64) * (s >> 64) into dest, where s is a
// Q64.64 square-root price. The fractional part of s is discarded before
// squaring, so prices below one unit truncate to zero.
func PriceFromSqrtPriceX64(dest, sqrtPriceX64 *uint256.Int) error {
	if sqrtPriceX64 == nil {
		return fmt.Errorf("%w: nil sqrt price", engine.ErrDecode)
	}
	if sqrtPriceX64.BitLen() > 128 {
		return fmt.Errorf("%w: sqrt price %s exceeds 128 bits", engine.ErrArithmeticOverflow, sqrtPriceX64.Dec())
	}

	whole := new(uint256.Int).Rsh(sqrtPriceX64, Resolution)
	if _, overflow := dest.MulOverflow(whole, whole); overflow || dest.BitLen() > 128 {
		return fmt.Errorf("%w: squaring %s", engine.ErrArithmeticOverflow, whole.Dec())
	}
	return nil
}

// ToDecimal returns s^2 / 2^128 rounded to DecimalPlaces, i.e. the price
// without the truncation PriceFromSqrtPriceX64 applies.
func ToDecimal(sqrtPriceX64 *uint256.Int) decimal.Decimal {
	if sqrtPriceX64 == nil || sqrtPriceX64.IsZero() {
		return decimal.Zero
	}
	s := sqrtPriceX64.ToBig()
	squared := new(big.Int).Mul(s, s)
	return decimal.NewFromBigInt(squared, 0).DivRound(q128, DecimalPlaces)
}

// AddChecked writes x + y into dest, failing when the sum leaves the
// unsigned 128-bit range.
func AddChecked(dest, x, y *uint256.Int) error {
	if _, overflow := dest.AddOverflow(x, y); overflow || dest.BitLen() > 128 {
		return fmt.Errorf("%w: %s + %s exceeds 128 bits", engine.ErrArithmeticOverflow, x.Dec(), y.Dec())
	}
	return nil
}

// FromX64 builds a Q64.64 value from an integer and a fractional numerator
// over 2^64. It is a convenience for fixtures and tests.
func FromX64(integer, fraction uint64) *uint256.Int {
	out := new(uint256.Int)
	out[0] = fraction
	out[1] = integer
	return out
}
