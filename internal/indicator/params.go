package indicator

import (
	"sort"
	"strconv"
	"strings"
)

// Params configures Enrich. The zero value is not useful; start from
// DefaultParams.
type Params struct {
	// Window is the lookback for slope and trend classifiers.
	Window int
	// MAWindows lists the moving-average periods to compute.
	MAWindows []int
	// TrendMA is the MA period the generic slope classifiers look at.
	TrendMA int

	KDJPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int

	VolumeAmplify float64
	VolumePrev    int
	VolumePeriod  int
	PricePeriod   int
	VolumeCVLimit float64

	// LastOnly restricts window classifiers to the final index. Used by
	// buy and sell predictions, which only look at the latest bar.
	LastOnly bool
}

// DefaultParams returns the canonical parameter set.
func DefaultParams() Params {
	return Params{
		Window:        3,
		MAWindows:     []int{5, 10, 20, 120},
		TrendMA:       20,
		KDJPeriod:     9,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		VolumeAmplify: 2.0,
		VolumePrev:    5,
		VolumePeriod:  20,
		PricePeriod:   60,
		VolumeCVLimit: 0.3,
	}
}

// WithTuning returns a copy of p with recognised tuning keys applied.
// Both the volume_* spelling and the older volumn_* spelling are accepted.
func (p Params) WithTuning(t Tuning) Params {
	p.MAWindows = append([]int(nil), p.MAWindows...)
	p.Window = t.Int(p.Window, "period", "window")
	p.TrendMA = t.Int(p.TrendMA, "trend_ma")
	p.VolumeAmplify = t.Float(p.VolumeAmplify, "volume_amplify", "volumn_amplify")
	p.VolumePrev = t.Int(p.VolumePrev, "prev")
	p.VolumePeriod = t.Int(p.VolumePeriod, "volume_period", "volumn_period")
	p.PricePeriod = t.Int(p.PricePeriod, "price_period")
	p.VolumeCVLimit = t.Float(p.VolumeCVLimit, "volume_cv_limit", "volume_slope", "volumn_slope")
	return p
}

func (p Params) withTrendMA() []int {
	windows := append([]int(nil), p.MAWindows...)
	for _, w := range windows {
		if w == p.TrendMA {
			return windows
		}
	}
	if p.TrendMA > 0 {
		windows = append(windows, p.TrendMA)
	}
	sort.Ints(windows)
	return windows
}

// ---------------------------------------------------------------------------
// Tuning strings
// ---------------------------------------------------------------------------

// Tuning holds parsed key=value pairs. Values are int, float64 or string.
type Tuning map[string]any

// ParseTuning parses a comma-separated key=value list. A value containing
// "." parses as float, otherwise as int, and falls back to the raw string.
// Items without "=" are skipped.
func ParseTuning(s string) Tuning {
	t := Tuning{}
	for _, item := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" {
			continue
		}
		t[k] = parseValue(v)
	}
	return t
}

func parseValue(v string) any {
	if strings.Contains(v, ".") {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return v
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return v
}

// Int returns the first present key as an int, or def. Floats truncate;
// strings fall back to def.
func (t Tuning) Int(def int, keys ...string) int {
	for _, k := range keys {
		switch v := t[k].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return def
}

// Float returns the first present key as a float64, or def.
func (t Tuning) Float(def float64, keys ...string) float64 {
	for _, k := range keys {
		switch v := t[k].(type) {
		case int:
			return float64(v)
		case float64:
			return v
		}
	}
	return def
}

// String returns the first present key formatted as a string, or def.
func (t Tuning) String(def string, keys ...string) string {
	for _, k := range keys {
		switch v := t[k].(type) {
		case string:
			return v
		case int:
			return strconv.Itoa(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return def
}
