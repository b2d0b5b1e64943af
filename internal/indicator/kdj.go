package indicator

import "yupan/internal/domain"

type kdjPoint struct {
	K, D, J float64
	valid   bool
	cross   Cross
}

// kdj computes the stochastic oscillator. RSV uses the rolling low/high of
// up to n bars, K smooths RSV with alpha 1/3 and D smooths K the same way.
// A zero high-low range produces no RSV for that bar and K carries forward.
func kdj(bars []domain.Bar, n int) []kdjPoint {
	if n < 1 {
		n = 9
	}
	lows, highs := newRing(n), newRing(n)
	kEWM, dEWM := newEWM(1.0/3), newEWM(1.0/3)

	out := make([]kdjPoint, len(bars))
	for i, b := range bars {
		lows.push(b.Low)
		highs.push(b.High)
		lo, hi := lows.min(), highs.max()

		rsv, ok := 0.0, hi != lo
		if ok {
			rsv = (b.Close - lo) / (hi - lo) * 100
		}

		k, kOK := kEWM.update(rsv, ok)
		d, dOK := dEWM.update(k, kOK)
		p := kdjPoint{cross: NoCross}
		if kOK && dOK {
			p.K, p.D, p.J, p.valid = k, d, 3*k-2*d, true
		}
		if i > 0 && p.valid && out[i-1].valid {
			p.cross = crossOf(out[i-1].K, out[i-1].D, p.K, p.D)
		}
		out[i] = p
	}
	return out
}
