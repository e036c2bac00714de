package common

import (
	"math/bits"

	coreerrors "monkeydao/core/errors"
)

// AddUint64 returns a+b or ErrArithmeticOverflow.
func AddUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, coreerrors.ErrArithmeticOverflow
	}
	return sum, nil
}

// SubUint64 returns a-b or ErrArithmeticUnderflow.
func SubUint64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, coreerrors.ErrArithmeticUnderflow
	}
	return diff, nil
}

// MulUint64 returns a*b or ErrArithmeticOverflow.
func MulUint64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, coreerrors.ErrArithmeticOverflow
	}
	return lo, nil
}

// Increment adds one to *counter in place.
func Increment(counter *uint64) error {
	next, err := AddUint64(*counter, 1)
	if err != nil {
		return err
	}
	*counter = next
	return nil
}
