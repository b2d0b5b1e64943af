package builtins

import (
	"yupan/internal/indicator"
	"yupan/internal/strategy"
)

// NewVolumeDetect returns the volume mode. Its columns come straight from
// indicator.Enrich, tuned by prev, volume_amplify, volume_period,
// price_period and volume_slope.
func NewVolumeDetect() *strategy.Mode {
	return &strategy.Mode{
		Name:        VolumeDetect,
		Description: "sustained volume breakout near a price high",
		Buy: strategy.NewRegistry(VolumeDetect+"/buy", map[string]strategy.Predicate{
			"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
				return r.Close > r.Open && r.Breakout && r.PriceTop3,
					"volume breakout with close among the three highest"
			}),
			"2": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) {
				return r.Spike, "volume spike over a stable baseline"
			}),
		}),
		Sell:   commonSellRegistry(VolumeDetect),
		Policy: oscillatorPolicy(),
	}
}
