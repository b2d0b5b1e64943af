// Package builtins provides the strategy modes that ship with yupan. Each
// mode bundles buy and sell registries with the pretreatment that computes
// the columns its predicates read.
package builtins

import (
	"yupan/internal/indicator"
	"yupan/internal/strategy"
)

// Mode names.
const (
	FishTub           = "fish_tub"
	FishTubLegacy     = "fish_tub_legacy"
	Hydroplaning      = "hydroplaning"
	KDJ               = "kdj"
	KDJReady          = "kdj_ready"
	VolumeDetect      = "volume_detect"
	LowVolumePullback = "low_volume_pullback"
	MA120Pullback     = "ma120_pullback"
)

// Aliases maps older spellings to current mode names.
var Aliases = map[string]string{
	"volumn_detect":       VolumeDetect,
	"low_volumn_pullback": LowVolumePullback,
}

// Catalog returns every built-in mode.
func Catalog() *strategy.Catalog {
	modes := []*strategy.Mode{
		NewFishTub(),
		NewFishTubLegacy(),
		NewHydroplaning(),
		NewKDJ(),
		NewKDJReady(),
		NewVolumeDetect(),
		NewLowVolumePullback(),
		NewMA120Pullback(),
	}
	for alias, name := range Aliases {
		for _, m := range modes {
			if m.Name == name {
				aliased := *m
				aliased.Name = alias
				modes = append(modes, &aliased)
				break
			}
		}
	}
	return strategy.NewCatalog(modes...)
}

// fn shortens registry literals.
type fn = strategy.PredicateFunc

// trailingMA returns MA(w) for the n rows ending at i, or nil when i < n-1.
func trailingMA(rows []indicator.Row, i, n, w int) []float64 {
	if n < 1 || i < n-1 {
		return nil
	}
	out := make([]float64, n)
	for j := range out {
		out[j] = rows[i-n+1+j].MAValue(w)
	}
	return out
}

// definedMA is trailingMA but also nil when any value is undefined.
func definedMA(rows []indicator.Row, i, n, w int) []float64 {
	vals := trailingMA(rows, i, n, w)
	for _, v := range vals {
		if v <= 0 {
			return nil
		}
	}
	return vals
}

// dropFromOpen is (open - close) / open.
func dropFromOpen(r *indicator.Row) float64 {
	if r.Open == 0 {
		return 0
	}
	return (r.Open - r.Close) / r.Open
}

// ---------------------------------------------------------------------------
// Sell rules shared by the oscillator and volume modes
// ---------------------------------------------------------------------------

func commonSell(r *indicator.Row, st *strategy.RunState) (bool, string) {
	if r.Close < r.MAValue(5) {
		return true, "close below ma5"
	}
	if dropFromOpen(r) > 0.03 {
		return true, "intraday drop above 3%"
	}
	if fellOnSecondDay(st) {
		return true, "fell on the second day of holding"
	}
	return false, ""
}

func fellOnSecondDay(st *strategy.RunState) bool {
	return len(st.Held) == 2 && st.Held[1].Close < st.Held[1].Open
}

func commonSellRegistry(mode string) *strategy.Registry {
	return strategy.NewRegistry(mode+"/sell", map[string]strategy.Predicate{
		"1": fn(commonSell),
	})
}
