package builtins

import (
	"yupan/internal/indicator"
	"yupan/internal/strategy"
)

const (
	flagRecentGolden = "recent_kdj_gold"
	flagMACDRising   = "macd_rising"
	flagCrossReady   = "cross_ready"
)

// NewKDJ returns the KDJ mode: buy on a fresh KDJ golden cross while the
// MACD histogram turns strong.
func NewKDJ() *strategy.Mode {
	return &strategy.Mode{
		Name:        KDJ,
		Description: "KDJ golden cross with a strengthening MACD histogram",
		Buy: strategy.NewRegistry(KDJ+"/buy", map[string]strategy.Predicate{
			"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
				return r.Flag(flagRecentGolden) && r.Flag(flagMACDRising) && r.Close > r.Open,
					"KDJ golden cross with MACD turning strong"
			}),
		}),
		Sell:     commonSellRegistry(KDJ),
		Pretreat: kdjPretreat,
		Policy:   oscillatorPolicy(),
	}
}

// NewKDJReady returns the mode that buys just before a KDJ golden cross:
// K is under D but closing the gap.
func NewKDJReady() *strategy.Mode {
	return &strategy.Mode{
		Name:        KDJReady,
		Description: "KDJ about to cross golden",
		Buy: strategy.NewRegistry(KDJReady+"/buy", map[string]strategy.Predicate{
			"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
				return r.Flag(flagCrossReady), "KDJ about to cross golden"
			}),
		}),
		Sell:     commonSellRegistry(KDJReady),
		Pretreat: kdjReadyPretreat,
		Policy:   oscillatorPolicy(),
	}
}

func oscillatorPolicy() strategy.Policy {
	return strategy.Policy{
		Execution:    strategy.ExecuteClose,
		Composition:  strategy.CompositionExpression,
		OpenPosition: strategy.OpenMarkAtEntry,
		DefaultBuy:   "1",
		DefaultSell:  "1",
	}
}

const kdjPeriod = 3

func kdjPretreat(rows []indicator.Row, op strategy.Operate, _ indicator.Tuning) {
	for _, i := range strategy.Indexes(rows, op) {
		if i < kdjPeriod-1 {
			continue
		}
		golden := rows[i].KDJCross == indicator.GoldenCross || rows[i-1].KDJCross == indicator.GoldenCross
		rows[i].SetFlag(flagRecentGolden, golden)

		hist := make([]float64, kdjPeriod)
		for j := range hist {
			hist[j] = rows[i-kdjPeriod+1+j].MACD
		}
		rows[i].SetFlag(flagMACDRising, indicator.TurnedStrong(hist))
	}
}

func kdjReadyPretreat(rows []indicator.Row, op strategy.Operate, _ indicator.Tuning) {
	for _, i := range strategy.Indexes(rows, op) {
		if i < kdjPeriod-1 {
			continue
		}
		ready := true
		gap := make([]float64, kdjPeriod)
		for j := range gap {
			r := &rows[i-kdjPeriod+1+j]
			if r.K >= r.D {
				ready = false
			}
			gap[j] = r.K - r.D
		}
		ready = ready && indicator.Rising(gap) && rows[i].K >= rows[i-1].K
		rows[i].SetFlag(flagCrossReady, ready)
	}
}
