package builtins

import (
	"yupan/internal/indicator"
	"yupan/internal/strategy"
)

// Column names written by the fish-tub pretreatment.
const (
	flagMA20SlopeUp = "ma20_slope_up"
	flagMA20Rising  = "ma20_rising"
)

const fishTubCapFloor = 500e8

// fishTubPretreat marks whether MA20 is accelerating and rising over the
// tuning "period" (default 3). strict selects > over >= for rising.
func fishTubPretreat(strict bool) strategy.PretreatFunc {
	return func(rows []indicator.Row, op strategy.Operate, t indicator.Tuning) {
		period := t.Int(3, "period")
		for _, i := range strategy.Indexes(rows, op) {
			w := trailingMA(rows, i, period, 20)
			if w == nil {
				continue
			}
			rows[i].SetFlag(flagMA20SlopeUp, indicator.SlopeIncreasing(w))
			if strict {
				rows[i].SetFlag(flagMA20Rising, indicator.RisingStrict(w))
			} else {
				rows[i].SetFlag(flagMA20Rising, indicator.Rising(w))
			}
		}
	}
}

// NewFishTub returns the fish-tub mode: buy when the close first crosses
// above an accelerating MA20.
func NewFishTub() *strategy.Mode {
	return &strategy.Mode{
		Name:        FishTub,
		Description: "first close above an accelerating MA20",
		Buy:         strategy.NewRegistry(FishTub+"/buy", fishTubBuys()),
		Sell:        strategy.NewRegistry(FishTub+"/sell", fishTubSells()),
		Pretreat:    fishTubPretreat(true),
		Policy: strategy.Policy{
			Execution:      strategy.ExecuteClose,
			Composition:    strategy.CompositionExpression,
			OpenPosition:   strategy.OpenMarkAtEntry,
			MarketCapFloor: fishTubCapFloor,
			DefaultBuy:     "3",
			DefaultSell:    "1,8",
		},
	}
}

// NewFishTubLegacy is fish-tub with the first-generation backtest rules:
// first-match composition, fills at the next bar's open, and an open
// position left out of the return.
func NewFishTubLegacy() *strategy.Mode {
	m := NewFishTub()
	m.Name = FishTubLegacy
	m.Description = "fish-tub with next-open fills and first-match rules"
	m.Policy.Execution = strategy.ExecuteNextOpen
	m.Policy.Composition = strategy.CompositionFirstMatch
	m.Policy.OpenPosition = strategy.OpenExclude
	return m
}

func fishTubBuys() map[string]strategy.Predicate {
	return map[string]strategy.Predicate{
		"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return r.FirstAbove(20) && r.Flag(flagMA20SlopeUp) && r.IsRaise,
				"buy 1: first close above ma20, up day, ma20 accelerating"
		}),
		"2": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return r.FirstAbove(20) && r.IsRaise,
				"buy 2: first close above ma20, up day"
		}),
		"3": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return r.FirstAbove(20) && r.Flag(flagMA20Rising) && r.Flag(flagMA20SlopeUp) && r.IsRaise,
				"buy 3: first close above ma20, up day, ma20 rising and accelerating"
		}),
	}
}

func fishTubSells() map[string]strategy.Predicate {
	return map[string]strategy.Predicate{
		"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return r.Close < r.MAValue(20), "sell 1: close below ma20"
		}),
		"2": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return r.Close < r.Open, "sell 2: down day"
		}),
		"3": fn(func(r *indicator.Row, st *strategy.RunState) (bool, string) {
			return st.Gain(r.Close) > 0.03, "sell 3: gain above 3%"
		}),
		"4": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) {
			return st.DaysHeld >= 7, "sell 4: held 7 days"
		}),
		"5": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return dropFromOpen(r) > 0.01 || r.Close < r.MAValue(20), "sell 5: drop above 1% or close below ma20"
		}),
		"6": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return dropFromOpen(r) > 0.02, "sell 6: drop above 2%"
		}),
		"7": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
			return -dropFromOpen(r) > 0.05, "sell 7: rise above 5%"
		}),
		"8": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) {
			return stalledAfterFive(st), "sell 8: too little gain five days after entry"
		}),
		"9": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) {
			return fellOnSecondDay(st), "sell 9: fell on the second day of holding"
		}),
		"a": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) {
			return threeDownDays(st), "sell a: three consecutive down days"
		}),
		"b": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) {
			return flatFourDays(st), "sell b: no progress over a four-day window"
		}),
	}
}

// stalledAfterFive fires on the fifth held bar when no day after entry
// gained more than 0.5% or the total gain is under 1%.
func stalledAfterFive(st *strategy.RunState) bool {
	held := st.Held
	if len(held) != 5 {
		return false
	}
	small := true
	for _, r := range held[1:] {
		if r.Change() > 0.5 {
			small = false
			break
		}
	}
	first, last := held[0].Close, held[len(held)-1].Close
	return small || (first != 0 && (last-first)/first < 0.01)
}

func threeDownDays(st *strategy.RunState) bool {
	held := st.Held
	if len(held) <= 3 {
		return false
	}
	for i := 3; i < len(held); i++ {
		if held[i].Close <= held[i].Open && held[i-1].Close <= held[i-1].Open && held[i-2].Close <= held[i-2].Open {
			return true
		}
	}
	return false
}

func flatFourDays(st *strategy.RunState) bool {
	const window = 4
	held := st.Held
	if len(held) <= window {
		return false
	}
	for i := window; i < len(held); i++ {
		if held[i].Close-held[i-window].Open < 0.01 {
			return true
		}
	}
	return false
}
