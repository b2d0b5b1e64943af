package indicator

import (
	"fmt"

	"yupan/internal/domain"
)

// Enrich computes the derived columns for a series sorted ascending by
// date. It does not modify bars and returns a fresh slice on every call.
// A series of fewer than two bars yields domain.ErrDataUnavailable.
func Enrich(bars []domain.Bar, p Params) ([]Row, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("enrich: %d bars: %w", len(bars), domain.ErrDataUnavailable)
	}

	n := len(bars)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	windows := p.withTrendMA()
	maCols := make(map[int][]MAPoint, len(windows))
	var trend []float64
	for _, w := range windows {
		ma := movingAverage(closes, w)
		maCols[w] = maPoints(closes, ma)
		if w == p.TrendMA {
			trend = ma
		}
	}

	osc := kdj(bars, p.KDJPeriod)
	md := macd(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)

	rows := make([]Row, n)
	for i, b := range bars {
		r := Row{
			Bar:       b,
			Index:     i,
			MA:        make(map[int]MAPoint, len(windows)),
			K:         osc[i].K,
			D:         osc[i].D,
			J:         osc[i].J,
			KDJCross:  osc[i].cross,
			DIF:       md[i].DIF,
			DEA:       md[i].DEA,
			MACD:      md[i].Hist,
			MACDCross: md[i].cross,
		}
		for _, w := range windows {
			r.MA[w] = maCols[w][i]
		}
		r.VolumeRatio = volumeRatio(volumes, i, 5)
		r.IsRaise = i >= 1 && b.Close > b.Open
		rows[i] = r
	}

	start := 0
	if p.LastOnly {
		start = n - 1
	}
	for i := start; i < n; i++ {
		r := &rows[i]
		if w := trailing(trend, i, p.Window); w != nil {
			r.Slope = LinearSlope(w)
			r.SlopeUp = SlopeIncreasing(w)
			r.Rising = Rising(w)
			r.TurnedStrong = TurnedStrong(w)
		}
		r.Breakout = Breakout(volumes, i, p)
		r.Spike = Spike(volumes, i, bars[i].Open, bars[i].Close, p)
		r.PriceTop3 = PriceTop3(closes, i, p.PricePeriod)
	}

	return rows, nil
}

// Column extracts one numeric column from rows.
func Column(rows []Row, f func(*Row) float64) []float64 {
	out := make([]float64, len(rows))
	for i := range rows {
		out[i] = f(&rows[i])
	}
	return out
}

// IndexOfDate returns the index of the row whose session falls on date, or
// domain.ErrDateNotFound.
func IndexOfDate(rows []Row, date string) (int, error) {
	want, err := domain.ParseDate(date)
	if err != nil {
		return -1, err
	}
	for i := range rows {
		if domain.SameDay(rows[i].Timestamp, want) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s: %w", date, domain.ErrDateNotFound)
}
