package indicator

type macdPoint struct {
	DIF, DEA, Hist float64
	cross          Cross
}

// macd computes DIF = EMA(fast) - EMA(slow), DEA = EMA(DIF, signal) and the
// histogram 2*(DIF-DEA). Each EMA is seeded with its first input.
func macd(closes []float64, fast, slow, signal int) []macdPoint {
	fastEMA, slowEMA, sigEMA := newSpanEWM(fast), newSpanEWM(slow), newSpanEWM(signal)

	out := make([]macdPoint, len(closes))
	for i, c := range closes {
		f, _ := fastEMA.update(c, true)
		s, _ := slowEMA.update(c, true)
		dif := f - s
		dea, _ := sigEMA.update(dif, true)

		p := macdPoint{DIF: dif, DEA: dea, Hist: 2 * (dif - dea), cross: NoCross}
		if i > 0 {
			p.cross = crossOf(out[i-1].DIF, out[i-1].DEA, dif, dea)
		}
		out[i] = p
	}
	return out
}
