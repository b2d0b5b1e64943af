package indicator

// Breakout reports a volume breakout at i. The first stage needs today's and
// yesterday's volume above amplify times the max of the period bars before
// yesterday, with a day-over-day change under the limit. When that misses,
// the second stage looks one bar further back: the first and last of the
// last three bars must clear the shifted max.
func Breakout(volumes []float64, i int, p Params) bool {
	vp := p.VolumePeriod
	if vp < 1 || i >= len(volumes) {
		return false
	}
	if i >= vp+1 {
		ceiling := WindowMax(volumes[i-vp-1:i-1]) * p.VolumeAmplify
		curr, prev := volumes[i], volumes[i-1]
		if curr > ceiling && prev > ceiling && stable(curr, prev, p.VolumeCVLimit) {
			return true
		}
	}
	if i >= vp+2 {
		ceiling := WindowMax(volumes[i-vp-2:i-2]) * p.VolumeAmplify
		first, mid, last := volumes[i-2], volumes[i-1], volumes[i]
		return first > ceiling && last > ceiling && stable(first, mid, p.VolumeCVLimit)
	}
	return false
}

func stable(a, b, limit float64) bool {
	hi := a
	if b > hi {
		hi = b
	}
	if hi <= 0 {
		return false
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d/hi < limit
}

// Spike reports that at least two of the last three volumes exceed amplify
// times the mean of the VolumePrev bars before them, that both windows have
// a coefficient of variation under the limit, and that the bar closed above
// its open.
func Spike(volumes []float64, i int, open, close float64, p Params) bool {
	prev := p.VolumePrev
	if prev < 1 || i < prev+2 || i >= len(volumes) || close <= open {
		return false
	}
	recent := volumes[i-2 : i+1]
	base := volumes[i-2-prev : i-2]

	threshold := Mean(base) * p.VolumeAmplify
	hits := 0
	for _, v := range recent {
		if v > threshold {
			hits++
		}
	}
	if hits < 2 {
		return false
	}
	return CV(recent) < p.VolumeCVLimit && CV(base) < p.VolumeCVLimit
}

// PriceTop3 reports whether close[i] is among the three highest closes of
// the trailing period window.
func PriceTop3(closes []float64, i, period int) bool {
	w := trailing(closes, i, period)
	if w == nil {
		return false
	}
	return closes[i] >= NthLargest(w, 3)
}

// volumeRatio is today's volume over the mean of the previous n.
func volumeRatio(volumes []float64, i, n int) float64 {
	if n < 1 || i < n {
		return 0
	}
	m := Mean(volumes[i-n : i])
	if m == 0 {
		return 0
	}
	return volumes[i] / m
}
