// Package compare joins current and previous period series and derives growth.
package compare

import "math"

// PercentChange returns the growth from previous to current in percent,
// rounded to one decimal. It returns nil when previous is zero: no baseline is
// not the same as no change.
func PercentChange(current, previous float64) *float64 {
	if previous == 0 || math.IsNaN(previous) || math.IsNaN(current) {
		return nil
	}
	v := round1((current - previous) / previous * 100)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// PercentChangeOpt is PercentChange for an optional previous value.
func PercentChangeOpt(current float64, previous *float64) *float64 {
	if previous == nil {
		return nil
	}
	return PercentChange(current, *previous)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
