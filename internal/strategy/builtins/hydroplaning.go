package builtins

import (
	"yupan/internal/indicator"
	"yupan/internal/strategy"
)

// flagFishTub marks that the series is inside a fish-tub cycle. Buys 2 and
// 3 open a cycle; a close under MA20 or a stalled position ends it.
const flagFishTub = "fish_tub"

// NewHydroplaning returns the hydroplaning mode, a fish-tub refinement that
// re-enters above MA5 while a fish-tub cycle is still running.
func NewHydroplaning() *strategy.Mode {
	return &strategy.Mode{
		Name:        Hydroplaning,
		Description: "re-enter above ma5 while a fish-tub cycle is active",
		Buy:         strategy.NewRegistry(Hydroplaning+"/buy", hydroplaningBuys()),
		Sell:        strategy.NewRegistry(Hydroplaning+"/sell", hydroplaningSells()),
		Pretreat:    fishTubPretreat(false),
		Policy: strategy.Policy{
			Execution:      strategy.ExecuteClose,
			Composition:    strategy.CompositionExpression,
			OpenPosition:   strategy.OpenMarkAtEntry,
			MarketCapFloor: fishTubCapFloor,
			DefaultBuy:     "1,2",
			DefaultSell:    "1,2",
		},
	}
}

func hydroplaningBuys() map[string]strategy.Predicate {
	return map[string]strategy.Predicate{
		"1": fn(func(r *indicator.Row, st *strategy.RunState) (bool, string) {
			return st.Flag(flagFishTub) && r.IsRaise && r.Close >= r.MAValue(5),
				"buy 1: inside a fish-tub cycle and close above ma5"
		}),
		"2": fn(func(r *indicator.Row, st *strategy.RunState) (bool, string) {
			const desc = "buy 2: first close above ma20, up day, ma20 rising and accelerating"
			if r.Close < r.MAValue(20) {
				st.SetFlag(flagFishTub, false)
			}
			if r.FirstAbove(20) && r.Flag(flagMA20Rising) && r.Flag(flagMA20SlopeUp) && r.IsRaise {
				st.SetFlag(flagFishTub, true)
				return true, desc
			}
			return false, desc
		}),
		"3": fn(func(r *indicator.Row, st *strategy.RunState) (bool, string) {
			const desc = "buy 3: first close above ma20, up day, ma20 accelerating"
			if r.Close < r.MAValue(20) {
				st.SetFlag(flagFishTub, false)
			}
			if r.FirstAbove(20) && r.Flag(flagMA20SlopeUp) && r.IsRaise {
				st.SetFlag(flagFishTub, true)
				return true, desc
			}
			return false, desc
		}),
	}
}

func hydroplaningSells() map[string]strategy.Predicate {
	return map[string]strategy.Predicate{
		"1": fn(func(r *indicator.Row, st *strategy.RunState) (bool, string) {
			const desc = "sell 1: inside a fish-tub cycle, close below ma5 and ma5 outpacing ma20"
			if ma5OutpacesMA20(st.Held) && st.Flag(flagFishTub) && r.Close < r.MAValue(5) {
				if r.Close < r.MAValue(20) {
					st.SetFlag(flagFishTub, false)
				}
				return true, desc
			}
			return false, desc
		}),
		"2": fn(func(r *indicator.Row, st *strategy.RunState) (bool, string) {
			if r.Close < r.MAValue(20) {
				st.SetFlag(flagFishTub, false)
				return true, "sell 2: close below ma20"
			}
			return false, "sell 2: close below ma20"
		}),
		"3": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) {
			if stalledAfterFive(st) {
				st.SetFlag(flagFishTub, false)
				return true, "sell 3: too little gain five days after entry"
			}
			return false, "sell 3: too little gain five days after entry"
		}),
		"4": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) {
			if fellOnSecondDay(st) {
				st.SetFlag(flagFishTub, false)
				return true, "sell 4: fell on the second day of holding"
			}
			return false, "sell 4: fell on the second day of holding"
		}),
	}
}

// ma5OutpacesMA20 compares the MA5 and MA20 change over the last five held
// bars. The MA5 change must exceed twice the MA20 change.
func ma5OutpacesMA20(held []*indicator.Row) bool {
	if len(held) == 0 {
		return false
	}
	if len(held) > 5 {
		held = held[len(held)-5:]
	}
	first, last := held[0], held[len(held)-1]
	ma5 := last.MAValue(5) - first.MAValue(5)
	ma20 := last.MAValue(20) - first.MAValue(20)
	if ma20 == 0 {
		return ma5 > 0
	}
	return ma5/ma20 > 2
}
