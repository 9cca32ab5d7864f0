package model

import (
	"math"
	"strconv"
	"strings"
)

// DeriveRemaining computes round(numeric(scope) * (100 - execution) / 100)
// where numeric keeps only the ASCII digits of scope. Execution is clamped to
// [0, 100]. ok is false when scope holds no digits or does not fit an int64.
func DeriveRemaining(scope string, execution int) (remaining string, ok bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, scope)
	if digits == "" {
		return "", false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > math.MaxInt64/100 {
		return "", false
	}
	execution = min(max(execution, 0), 100)
	// half-up rounding on a non-negative integer quotient
	left := (n*int64(100-execution) + 50) / 100
	return strconv.FormatInt(left, 10), true
}
