package pumpchart

import "math"

// DivS32 divides two int32 values, truncating toward zero. A zero divisor
// does not trap: the result clamps to math.MaxInt32 for a non-negative
// numerator and to math.MinInt32 otherwise. MinInt32 / -1 clamps to MaxInt32.
func DivS32(numerator, denominator int32) int32 {
	if denominator == 0 {
		if numerator >= 0 {
			return math.MaxInt32
		}
		return math.MinInt32
	}

	negate := (numerator < 0 && denominator > 0) || (numerator > 0 && denominator < 0)

	num, den := int64(numerator), int64(denominator)
	if num < 0 {
		num = -num
	}
	if den < 0 {
		den = -den
	}

	q := num / den
	if negate {
		q = -q
	}
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(q)
}
