package indicator

// movingAverage returns MA(w) per index, 0 while fewer than w closes have
// been seen.
func movingAverage(closes []float64, w int) []float64 {
	out := make([]float64, len(closes))
	if w < 1 {
		return out
	}
	r := newRing(w)
	for i, c := range closes {
		r.push(c)
		if r.full() {
			out[i] = r.mean()
		}
	}
	return out
}

// maPoints derives the above and first-crossing flags for one window.
func maPoints(closes, ma []float64) []MAPoint {
	pts := make([]MAPoint, len(closes))
	for i := range closes {
		above := ma[i] > 0 && closes[i] > ma[i]
		pts[i] = MAPoint{Value: ma[i], Above: above}
		if i == 0 {
			continue
		}
		prev := pts[i-1].Above
		pts[i].FirstAbove = above && !prev
		pts[i].FirstUnder = !above && prev
	}
	return pts
}
