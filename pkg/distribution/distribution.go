// Package distribution implements fixed-precision rounding and exact-sum
// redistribution of a probability budget across a set of items.
package distribution

import "math"

// Precision is the number of decimal places every persisted probability and
// variant weight is rounded to. All packages share this single constant so
// values written by one component compare equal when read by another.
const Precision = 4

// Tolerance is one unit in the last rounded decimal place. Sibling sets are
// considered consistent when their sum is within Tolerance of 1.
const Tolerance = 1.0 / 1e4

// Round rounds v to Precision decimal places, half away from zero.
func Round(v float64) float64 {
	factor := math.Pow10(Precision)
	return math.Round(v*factor) / factor
}

// Clamp01 clamps v into the closed interval [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ExactSum distributes remaining across n items so the rounded results sum to
// exactly remaining. When currentTotal is zero the split is equal; otherwise
// each item receives a share proportional to its current value. In both modes
// every item but the last is rounded and the last item absorbs the residual,
// so floating-point rounding can never leak the total.
//
// current reads item i's present value; set writes item i's new value.
func ExactSum(n int, current func(i int) float64, set func(i int, v float64), remaining, currentTotal float64) {
	if n <= 0 {
		return
	}
	if remaining < 0 {
		remaining = 0
	}

	if currentTotal == 0 {
		equal := Round(remaining / float64(n))
		allocated := 0.0
		for i := 0; i < n-1; i++ {
			set(i, equal)
			allocated += equal
		}
		set(n-1, Round(remaining-allocated))
		return
	}

	allocated := 0.0
	for i := 0; i < n-1; i++ {
		share := Round(current(i) / currentTotal * remaining)
		set(i, share)
		allocated += share
	}
	set(n-1, Round(remaining-allocated))
}
