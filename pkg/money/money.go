// Package money holds the single rounding rule for persisted amounts.
// Rounding happens once, at the point a value is written or shown, never
// in the middle of a calculation.
package money

import "math"

// Round rounds to two decimal places, half away from zero.
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}
