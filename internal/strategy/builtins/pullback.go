package builtins

import (
	"math"

	"yupan/internal/indicator"
	"yupan/internal/strategy"
)

// ---------------------------------------------------------------------------
// Low-volume pullback
// ---------------------------------------------------------------------------

const (
	flagAmountOutbreak = "amount_outbreak"
	flagLimitUp        = "limit_up"
	flagAmountFall     = "amount_fall"
	flagCloseToMA10    = "close_to_ma10"
	flagMA10NearMA20   = "ma10_close_to_ma20"
	flagMA10SlopeUp    = "ma10_slope_up"
	valueMA10Slope     = "ma10_slope"
)

const pullbackWindow = 10

// NewLowVolumePullback returns the mode that buys a quiet pullback to MA10
// after a burst of activity with a limit-up day.
func NewLowVolumePullback() *strategy.Mode {
	return &strategy.Mode{
		Name:        LowVolumePullback,
		Description: "shrinking-volume pullback to ma10 after a limit-up burst",
		Buy: strategy.NewRegistry(LowVolumePullback+"/buy", map[string]strategy.Predicate{
			"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
				hit := r.Flag(flagAmountOutbreak) &&
					r.Flag(flagLimitUp) &&
					r.Close < r.Open &&
					r.Flag(flagAmountFall) &&
					r.Flag(flagCloseToMA10) &&
					r.Flag(flagMA10NearMA20) &&
					r.Flag(flagMA10SlopeUp)
				return hit, "low-volume pullback to ma10"
			}),
		}),
		Sell:     belowMA10Registry(LowVolumePullback),
		Pretreat: lowVolumePullbackPretreat,
		Policy:   oscillatorPolicy(),
	}
}

func belowMA10Registry(mode string) *strategy.Registry {
	return strategy.NewRegistry(mode+"/sell", map[string]strategy.Predicate{
		"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return r.Close < r.MAValue(10), "close below ma10"
		}),
	})
}

func lowVolumePullbackPretreat(rows []indicator.Row, op strategy.Operate, _ indicator.Tuning) {
	for _, i := range strategy.Indexes(rows, op) {
		if i < pullbackWindow-1 {
			continue
		}
		r := &rows[i]
		last := rows[i-pullbackWindow+1 : i+1]

		slope := indicator.LinearSlope(definedMA(rows, i, pullbackWindow, 10))
		r.SetValue(valueMA10Slope, slope)

		amounts := make([]float64, len(last))
		limitUp := false
		for j := range last {
			amounts[j] = last[j].Amount
			prev := previousClose(rows, i-pullbackWindow+1+j)
			if prev > 0 && (last[j].Close-prev)/prev*100 >= 9.8 {
				limitUp = true
			}
		}
		lo, hi := amounts[0], amounts[0]
		for _, a := range amounts {
			lo = math.Min(lo, a)
			hi = math.Max(hi, a)
		}

		ma10, ma20 := r.MAValue(10), r.MAValue(20)
		r.SetFlag(flagAmountOutbreak, hi >= lo*2)
		r.SetFlag(flagLimitUp, limitUp)
		r.SetFlag(flagAmountFall, r.Amount < indicator.Mean(amounts) && r.Amount < rows[i-1].Amount)
		r.SetFlag(flagCloseToMA10, ma10 > 0 && r.Close >= ma10 && math.Abs(r.Close-ma10)/ma10 <= 0.01)
		r.SetFlag(flagMA10NearMA20, ma10 > 0 && math.Abs(ma20-ma10)/ma10 <= 0.01)
		r.SetFlag(flagMA10SlopeUp, slope > 0 && slope < 0.3)
	}
}

// previousClose prefers the bar's own previous close and falls back to the
// prior bar's close.
func previousClose(rows []indicator.Row, i int) float64 {
	if rows[i].PreClose > 0 {
		return rows[i].PreClose
	}
	if i > 0 {
		return rows[i-1].Close
	}
	return 0
}

// ---------------------------------------------------------------------------
// MA120 pullback
// ---------------------------------------------------------------------------

const (
	flagMA120Trend   = "ma120_trend_up"
	flagMA10Turn     = "ma10_turning_up"
	flagNearMA120    = "near_ma120"
	flagHistStrong   = "hist_strong"
	valueMA120Slope  = "ma120_slope_100"
	valueMA10Cycle   = "ma10_slope_cycle"
	valueMA10Slope5  = "ma10_slope_5"
	valueMA120Spread = "ma10_ma120_diff_ratio"

	pullbackCycle   = 60
	ma120MinHistory = 220
)

// NewMA120Pullback returns the long-trend pullback reversal mode: MA120
// rising for 100 bars, MA10 pulled back over the last cycle and now turning
// up close to MA120, with a history of trading well above it.
func NewMA120Pullback() *strategy.Mode {
	return &strategy.Mode{
		Name:        MA120Pullback,
		Description: "long-trend pullback reversal around ma120",
		Buy: strategy.NewRegistry(MA120Pullback+"/buy", map[string]strategy.Predicate{
			"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
				if r.Index < ma120MinHistory {
					return false, "insufficient history"
				}
				hit := r.Flag(flagMA120Trend) && r.Flag(flagMA10Turn) && r.Flag(flagNearMA120) && r.Flag(flagHistStrong)
				return hit, "long-trend pullback reversal"
			}),
		}),
		Sell:     belowMA10Registry(MA120Pullback),
		Pretreat: ma120PullbackPretreat,
		Policy:   oscillatorPolicy(),
	}
}

func ma120PullbackPretreat(rows []indicator.Row, op strategy.Operate, t indicator.Tuning) {
	spreadLimit := t.Float(0.05, "ma_diff_ratio_limit")
	histLimit := t.Float(0.20, "hist_diff_ratio_limit")

	for _, i := range strategy.Indexes(rows, op) {
		r := &rows[i]

		if w := definedMA(rows, i, 100, 120); w != nil && i >= 120+pullbackCycle {
			s := indicator.LinearSlope(w)
			r.SetValue(valueMA120Slope, s)
			r.SetFlag(flagMA120Trend, s > 0)
		}

		cycle := definedMA(rows, i, pullbackCycle+1, 10)
		short := definedMA(rows, i, 5, 10)
		if cycle != nil && short != nil {
			sc, s5 := indicator.LinearSlope(cycle), indicator.LinearSlope(short)
			r.SetValue(valueMA10Cycle, sc)
			r.SetValue(valueMA10Slope5, s5)
			r.SetFlag(flagMA10Turn, sc < 0 && s5 > 0)
		}

		ma10, ma120 := r.MAValue(10), r.MAValue(120)
		if ma120 > 0 {
			diff := ma10 - ma120
			ratio := math.Abs(diff) / ma120
			r.SetValue(valueMA120Spread, ratio)
			r.SetFlag(flagNearMA120, ratio < spreadLimit && (diff >= 0 || closedAboveMA120(rows, i, 3)))
		}

		if i >= 99 {
			best, ok := math.Inf(-1), false
			for j := i - 99; j <= i; j++ {
				if m := rows[j].MAValue(120); m > 0 {
					best = math.Max(best, (rows[j].MAValue(10)-m)/m)
					ok = true
				}
			}
			r.SetFlag(flagHistStrong, ok && best >= histLimit)
		}
	}
}

// closedAboveMA120 reports close > MA120 on each of the n bars ending at i.
func closedAboveMA120(rows []indicator.Row, i, n int) bool {
	if i < n-1 {
		return false
	}
	for j := i - n + 1; j <= i; j++ {
		if m := rows[j].MAValue(120); m <= 0 || rows[j].Close <= m {
			return false
		}
	}
	return true
}
