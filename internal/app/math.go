package app

import (
	"math"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

// mulDiv returns floor(a*b/den) computed in big-int space, so intermediate
// products cannot wrap uint64. den must be nonzero.
func mulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, errorsmod.Wrap(ErrOverflow, "division by zero")
	}
	out := sdkmath.NewIntFromUint64(a).
		Mul(sdkmath.NewIntFromUint64(b)).
		Quo(sdkmath.NewIntFromUint64(den))
	if !out.IsUint64() {
		return 0, errorsmod.Wrapf(ErrOverflow, "mulDiv(%d, %d, %d) exceeds uint64", a, b, den)
	}
	return out.Uint64(), nil
}

// bpsOf returns floor(amount*bps/10000).
func bpsOf(amount uint64, bps uint32) (uint64, error) {
	return mulDiv(amount, uint64(bps), 10000)
}

func addU64Checked(a, b uint64, what string) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, errorsmod.Wrapf(ErrOverflow, "%s: %d + %d", what, a, b)
	}
	return a + b, nil
}

func addInt64AndU64Checked(a int64, b uint64, what string) (int64, error) {
	if b > math.MaxInt64 {
		return 0, errorsmod.Wrapf(ErrOverflow, "%s: %d does not fit int64", what, b)
	}
	if a > math.MaxInt64-int64(b) {
		return 0, errorsmod.Wrapf(ErrOverflow, "%s: %d + %d", what, a, b)
	}
	return a + int64(b), nil
}
