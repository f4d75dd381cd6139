// Package fixedmath is the fee-pool state machine's deterministic,
// floor-only arithmetic. Every ratio on a consensus-relevant path —
// the storage-fee distribution table and the per-proposer payout split
// — is a (numerator, denominator) pair over uint64 credits. Binary
// floating point never appears: multiplies widen into a uint256.Int
// (which cannot overflow for any pair of uint64 operands) before the
// division, matching the teacher's overflow-checked arithmetic in
// consensus/misc's FakeExponential.
package fixedmath

import (
	"github.com/holiman/uint256"

	"github.com/dashpay/drive-feepool/errs"
)

// MulDivFloor computes floor(value * numerator / denominator) without
// intermediate overflow. denominator must be non-zero.
func MulDivFloor(value, numerator, denominator uint64) uint64 {
	if denominator == 0 {
		panic("fixedmath: division by zero")
	}
	wide := new(uint256.Int).SetUint64(value)
	wide.Mul(wide, uint256.NewInt(numerator))
	wide.Div(wide, uint256.NewInt(denominator))
	// value*numerator/denominator <= value <= math.MaxUint64 whenever
	// numerator <= denominator, which holds for every ratio this system
	// constructs (distribution-table fractions and proposer shares are
	// both <= 1). Uint64() truncates silently on overflow, so callers
	// must only ever pass such ratios.
	return wide.Uint64()
}

// SafeAdd adds two credit amounts, returning errs.Overflow if the sum
// would wrap a uint64.
func SafeAdd(a, b uint64, op string) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, &errs.Overflow{Op: op}
	}
	return sum, nil
}

// SafeSub subtracts b from a, returning errs.Overflow (the taxonomy has
// no separate underflow variant; spec.md treats underflow as fatal the
// same way) if the result would be negative.
func SafeSub(a, b uint64, op string) (uint64, error) {
	if b > a {
		return 0, &errs.Overflow{Op: op}
	}
	return a - b, nil
}
