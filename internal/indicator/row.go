// Package indicator enriches a bar series with the derived columns that
// strategy predicates read: moving averages, KDJ and MACD with their cross
// signals, trend classifiers and volume anomaly flags.
package indicator

import "yupan/internal/domain"

// Cross is a three-way crossover signal between a fast and a slow line.
type Cross string

const (
	GoldenCross Cross = "golden_cross"
	DeathCross  Cross = "death_cross"
	NoCross     Cross = "no_cross"
)

// crossOf compares two consecutive fast/slow pairs.
func crossOf(prevFast, prevSlow, fast, slow float64) Cross {
	switch {
	case prevFast < prevSlow && fast > slow:
		return GoldenCross
	case prevFast > prevSlow && fast < slow:
		return DeathCross
	default:
		return NoCross
	}
}

// MAPoint is one moving-average column at one bar.
type MAPoint struct {
	Value      float64 `json:"value"`
	Above      bool    `json:"above"`
	FirstAbove bool    `json:"first_above"`
	FirstUnder bool    `json:"first_under"`
}

// Row is an enriched bar. The embedded Bar is a copy and is never written
// after Enrich returns.
type Row struct {
	domain.Bar
	Index int `json:"index"`

	MA map[int]MAPoint `json:"ma"`

	K        float64 `json:"k"`
	D        float64 `json:"d"`
	J        float64 `json:"j"`
	KDJCross Cross   `json:"kdj_cross"`

	DIF       float64 `json:"dif"`
	DEA       float64 `json:"dea"`
	MACD      float64 `json:"macd"`
	MACDCross Cross   `json:"macd_cross"`

	VolumeRatio float64 `json:"volume_ratio"`
	IsRaise     bool    `json:"is_raise"`

	// Trend classifiers over Params.Window on the Params.TrendMA average.
	Slope        float64 `json:"slope"`
	SlopeUp      bool    `json:"slope_up"`
	Rising       bool    `json:"rising"`
	TurnedStrong bool    `json:"turned_strong"`

	Breakout  bool `json:"breakout"`
	Spike     bool `json:"spike"`
	PriceTop3 bool `json:"price_top3"`

	flags  map[string]bool
	values map[string]float64
}

// MAValue returns the w-period average, or 0 when it is undefined.
func (r *Row) MAValue(w int) float64 { return r.MA[w].Value }

// Above reports close > MA(w) with a defined average.
func (r *Row) Above(w int) bool { return r.MA[w].Above }

// FirstAbove reports that this bar is the first one above MA(w).
func (r *Row) FirstAbove(w int) bool { return r.MA[w].FirstAbove }

// FirstUnder reports that this bar is the first one at or under MA(w).
func (r *Row) FirstUnder(w int) bool { return r.MA[w].FirstUnder }

// Change returns the session change percent, derived from the previous
// close when the bar does not carry one.
func (r *Row) Change() float64 {
	if r.ChangePct != 0 || r.PreClose == 0 {
		return r.ChangePct
	}
	return (r.Close - r.PreClose) / r.PreClose * 100
}

// Flag returns a named mode-specific boolean column. Missing flags are
// false.
func (r *Row) Flag(name string) bool { return r.flags[name] }

// SetFlag records a named boolean column. Only pretreatment code calls it.
func (r *Row) SetFlag(name string, v bool) {
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}
	r.flags[name] = v
}

// Value returns a named mode-specific numeric column.
func (r *Row) Value(name string) (float64, bool) {
	v, ok := r.values[name]
	return v, ok
}

// SetValue records a named numeric column.
func (r *Row) SetValue(name string, v float64) {
	if r.values == nil {
		r.values = make(map[string]float64)
	}
	r.values[name] = v
}

// Flags returns a copy of the named boolean columns.
func (r *Row) Flags() map[string]bool {
	out := make(map[string]bool, len(r.flags))
	for k, v := range r.flags {
		out[k] = v
	}
	return out
}
