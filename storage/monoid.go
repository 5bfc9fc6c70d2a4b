package storage

import "strconv"

// Monoid combines two values for the same key during a merge. The
// operation must be associative with the empty string as identity, so
// independent writers' stores can be folded together in any grouping
// without losing data. The left argument is always the receiving
// storage's value.
type Monoid func(a, b string) string

// Concat joins both values, self first. The default for tags and
// free-form properties.
func Concat(a, b string) string {
	return a + b
}

// MaxNumeric keeps the larger value, comparing numerically when both
// sides parse as integers and lexically otherwise. Used for scores,
// where the higher rating wins.
func MaxNumeric(a, b string) string {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		if na >= nb {
			return a
		}
		return b
	}
	if a >= b {
		return a
	}
	return b
}
