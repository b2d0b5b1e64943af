package indicator

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"
)

// Window classifiers take the trailing slice ending at the current index.
// Callers pass nil or a short slice when history is insufficient and get
// false or zero back.

// SlopeIncreasing reports whether successive first differences never
// decrease, i.e. the series is accelerating or linear.
func SlopeIncreasing(w []float64) bool {
	if len(w) < 2 {
		return false
	}
	for i := 2; i < len(w); i++ {
		if w[i]-w[i-1] < w[i-1]-w[i-2] {
			return false
		}
	}
	return true
}

// Rising reports whether every value is >= the previous one.
func Rising(w []float64) bool {
	if len(w) < 2 {
		return false
	}
	for i := 1; i < len(w); i++ {
		if w[i] < w[i-1] {
			return false
		}
	}
	return true
}

// RisingStrict reports whether every value is > the previous one.
func RisingStrict(w []float64) bool {
	if len(w) < 2 {
		return false
	}
	for i := 1; i < len(w); i++ {
		if w[i] <= w[i-1] {
			return false
		}
	}
	return true
}

// TurnedStrong reports whether the last value is the window maximum and the
// window is not constant.
func TurnedStrong(w []float64) bool {
	if len(w) < 2 {
		return false
	}
	last := w[len(w)-1]
	constant := true
	for _, v := range w {
		if v > last {
			return false
		}
		if v != w[0] {
			constant = false
		}
	}
	return !constant
}

// LinearSlope is the least-squares slope of w against 0..len(w)-1. It is 0
// for fewer than two points or when any value is NaN.
func LinearSlope(w []float64) float64 {
	if len(w) < 2 {
		return 0
	}
	for _, v := range w {
		if math.IsNaN(v) {
			return 0
		}
	}
	out := talib.LinearRegSlope(w, len(w))
	return out[len(out)-1]
}

// WindowMax is the maximum of w, 0 when empty.
func WindowMax(w []float64) float64 {
	switch len(w) {
	case 0:
		return 0
	case 1:
		return w[0]
	}
	out := talib.Max(w, len(w))
	return out[len(out)-1]
}

// Mean is the arithmetic mean of w, 0 when empty.
func Mean(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s / float64(len(w))
}

// CV is the coefficient of variation (population stddev over mean). A
// zero mean yields +Inf so that it never passes a ceiling.
func CV(w []float64) float64 {
	m := Mean(w)
	if len(w) == 0 || m == 0 {
		return math.Inf(1)
	}
	if len(w) == 1 {
		return 0
	}
	sd := talib.StdDev(w, len(w), 1)
	return sd[len(sd)-1] / m
}

// NthLargest returns the n-th largest value (1-based) in w, or the maximum
// when w has fewer than n values.
func NthLargest(w []float64, n int) float64 {
	if len(w) == 0 {
		return 0
	}
	sorted := append([]float64(nil), w...)
	sort.Float64s(sorted)
	if len(sorted) < n || n < 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[len(sorted)-n]
}

// trailing returns vals[i-n+1 : i+1], or nil when i < n-1.
func trailing(vals []float64, i, n int) []float64 {
	if n < 1 || i < n-1 || i >= len(vals) {
		return nil
	}
	return vals[i-n+1 : i+1]
}
