// Package loader reads a symbol's bars and info from the series store and
// derives the values used to screen it before simulation.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"yupan/internal/domain"
	"yupan/internal/store"
)

// Loader loads stocks for one market.
type Loader struct {
	bars   store.BarStore
	infos  store.InfoStore
	market domain.Market
	logger *slog.Logger
}

// New creates a Loader over the given stores.
func New(bars store.BarStore, infos store.InfoStore, market domain.Market, logger *slog.Logger) *Loader {
	return &Loader{
		bars:   bars,
		infos:  infos,
		market: market,
		logger: logger.With("component", "loader"),
	}
}

// Market returns the market the loader reads from.
func (l *Loader) Market() domain.Market { return l.market }

// Load reads symbol's series up to end (zero means all of it) and derives
// the market cap and the previous session's amount. Fewer than two bars
// yield domain.ErrDataUnavailable.
func (l *Loader) Load(ctx context.Context, symbol string, interval domain.Interval, end time.Time) (*domain.Stock, error) {
	bars, err := l.bars.ReadBars(ctx, symbol, l.market, interval, time.Time{}, end)
	if err != nil {
		return nil, fmt.Errorf("loading bars for %s: %w", symbol, err)
	}
	bars = domain.TruncateBars(bars, end)
	if len(bars) < 2 {
		return nil, fmt.Errorf("%s: %d bars: %w", symbol, len(bars), domain.ErrDataUnavailable)
	}

	infos, err := l.infos.ReadInfo(ctx, symbol, l.market)
	if err != nil {
		return nil, fmt.Errorf("loading info for %s: %w", symbol, err)
	}
	info, ok := domain.LatestInfo(infos)
	if !ok {
		l.logger.Debug("no info record", "symbol", symbol)
		info = domain.StockInfo{Symbol: strings.ToUpper(symbol)}
	}

	prev := bars[len(bars)-2]
	return &domain.Stock{
		Info:       info,
		Bars:       bars,
		MarketCap:  prev.Close * info.Shares,
		PrevAmount: prev.Amount,
	}, nil
}

// ---------------------------------------------------------------------------
// Screening
// ---------------------------------------------------------------------------

// Condition is a screen applied to a loaded stock. Zero bounds are unset.
type Condition struct {
	CapAbove   float64
	CapUnder   float64
	CloseAbove float64
	CloseUnder float64
}

// ParseCondition parses a screen string. A bare number is a market-cap
// floor; otherwise comma-separated cap_above, cap_under, close_above and
// close_under assignments are accepted. Unknown keys are ignored.
func ParseCondition(s string) (Condition, error) {
	var c Condition
	s = strings.TrimSpace(s)
	if s == "" {
		return c, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		c.CapAbove = f
		return c, nil
	}
	for _, item := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return c, fmt.Errorf("condition %q: %w", item, err)
		}
		switch strings.TrimSpace(k) {
		case "cap_above", "market_cap":
			c.CapAbove = f
		case "cap_under":
			c.CapUnder = f
		case "close_above":
			c.CloseAbove = f
		case "close_under":
			c.CloseUnder = f
		}
	}
	return c, nil
}

// WithFloor returns c with floor as the market-cap floor unless c already
// sets one.
func (c Condition) WithFloor(floor float64) Condition {
	if c.CapAbove == 0 {
		c.CapAbove = floor
	}
	return c
}

// String renders c in the form ParseCondition accepts.
func (c Condition) String() string {
	var parts []string
	add := func(k string, v float64) {
		if v != 0 {
			parts = append(parts, k+"="+strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	add("cap_above", c.CapAbove)
	add("cap_under", c.CapUnder)
	add("close_above", c.CloseAbove)
	add("close_under", c.CloseUnder)
	return strings.Join(parts, ",")
}

// Screen checks st against c. A market cap equal to the floor passes. The
// close bounds apply to the last bar.
func (c Condition) Screen(st *domain.Stock) error {
	sym := st.Info.Symbol
	if c.CapAbove > 0 && st.MarketCap < c.CapAbove {
		return fmt.Errorf("%s: market cap %.0f below %.0f: %w", sym, st.MarketCap, c.CapAbove, domain.ErrThresholdUnmet)
	}
	if c.CapUnder > 0 && st.MarketCap > c.CapUnder {
		return fmt.Errorf("%s: market cap %.0f above %.0f: %w", sym, st.MarketCap, c.CapUnder, domain.ErrThresholdUnmet)
	}
	if len(st.Bars) == 0 {
		return nil
	}
	last := st.Bars[len(st.Bars)-1].Close
	if c.CloseAbove > 0 && last < c.CloseAbove {
		return fmt.Errorf("%s: close %.2f below %.2f: %w", sym, last, c.CloseAbove, domain.ErrThresholdUnmet)
	}
	if c.CloseUnder > 0 && last > c.CloseUnder {
		return fmt.Errorf("%s: close %.2f above %.2f: %w", sym, last, c.CloseUnder, domain.ErrThresholdUnmet)
	}
	return nil
}
