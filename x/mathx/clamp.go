package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Or returns v, or def when v is the zero value.
func Or[T constraints.Ordered](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// SatU16 saturates an integer into the uint16 range.
func SatU16[T constraints.Integer](v T) uint16 {
	if v <= 0 {
		return 0
	}
	if uint64(v) > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// Abs for signed integers.
func Abs[T ~int | ~int8 | ~int16 | ~int32 | ~int64](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
