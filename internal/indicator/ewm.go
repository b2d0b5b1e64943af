package indicator

import "math"

// ewm is an exponentially weighted mean without bias adjustment. Missing
// observations still age the previous value, so the first observation
// after a gap weighs more than alpha.
type ewm struct {
	alpha  float64
	oldWt  float64
	value  float64
	seeded bool
}

func newEWM(alpha float64) *ewm {
	return &ewm{alpha: alpha, oldWt: 1}
}

// newSpanEWM uses alpha = 2 / (span + 1).
func newSpanEWM(span int) *ewm {
	return newEWM(2 / (float64(span) + 1))
}

// update feeds one observation. ok=false marks a missing value. It returns
// the current mean and whether any observation has been seen.
func (e *ewm) update(x float64, ok bool) (float64, bool) {
	if ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
		ok = false
	}
	if !e.seeded {
		if ok {
			e.value = x
			e.seeded = true
			e.oldWt = 1
		}
		return e.value, e.seeded
	}

	e.oldWt *= 1 - e.alpha
	if ok {
		if e.value != x {
			e.value = (e.oldWt*e.value + e.alpha*x) / (e.oldWt + e.alpha)
		}
		e.oldWt = 1
	}
	return e.value, true
}
