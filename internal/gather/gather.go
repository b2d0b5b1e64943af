// Package gather refreshes the series store from upstream providers.
package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"yupan/internal/domain"
	"yupan/internal/store"
	"yupan/internal/util"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Fetcher retrieves bars for a batch of symbols from one provider.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbols []string, r DateRange) ([]domain.Bar, error)
}

// ---------------------------------------------------------------------------
// Refresher
// ---------------------------------------------------------------------------

var _ Gatherer = (*Refresher)(nil)

// RefreshOptions configures a Refresher.
type RefreshOptions struct {
	Market      domain.Market
	Interval    domain.Interval
	Symbols     []string
	Range       DateRange
	BatchSize   int
	MaxWorkers  int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Stats summarizes a refresh pass.
type Stats struct {
	Batches       int
	FailedBatches int
	Bars          int
	Symbols       int
}

// Refresher fetches bars in batches and merges them into the store. The
// store keeps the last record per session, so re-running a pass is safe.
type Refresher struct {
	fetcher Fetcher
	store   store.BarStore
	opts    RefreshOptions
	log     *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewRefresher creates a Refresher writing to s.
func NewRefresher(f Fetcher, s store.BarStore, opts RefreshOptions, logger *slog.Logger) *Refresher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Interval == "" {
		opts.Interval = domain.IntervalDaily
	}
	return &Refresher{
		fetcher: f,
		store:   s,
		opts:    opts,
		log:     logger.With("component", "gather", "fetcher", f.Name()),
	}
}

// Name returns the gatherer identifier.
func (r *Refresher) Name() string { return "refresh-" + r.fetcher.Name() }

// Stats returns the counters of the last Run.
func (r *Refresher) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run fetches every batch with bounded retry and writes the results. A
// failed batch is logged and skipped; Run fails only when every batch
// failed or ctx was cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	batches := split(r.opts.Symbols, r.opts.BatchSize)
	r.mu.Lock()
	r.stats = Stats{Batches: len(batches)}
	r.mu.Unlock()
	if len(batches) == 0 {
		return nil
	}

	start := time.Now()
	r.log.Info("refresh starting", "symbols", len(r.opts.Symbols), "batches", len(batches),
		"start", r.opts.Range.Start.Format(domain.DateLayout), "end", r.opts.Range.End.Format(domain.DateLayout))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxWorkers)
	for i, batch := range batches {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, syms, err := r.refreshBatch(gctx, batch)
			r.mu.Lock()
			defer r.mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				r.stats.FailedBatches++
				r.log.Warn("batch failed", "batch", fmt.Sprintf("%d/%d", i+1, len(batches)), "error", err)
				return nil
			}
			r.stats.Bars += n
			r.stats.Symbols += syms
			r.log.Debug("batch done", "batch", fmt.Sprintf("%d/%d", i+1, len(batches)), "bars", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stats := r.Stats()
	r.log.Info("refresh complete", "bars", stats.Bars, "symbols", stats.Symbols,
		"failed_batches", stats.FailedBatches, "elapsed", time.Since(start).Round(time.Millisecond))
	if stats.FailedBatches == stats.Batches {
		return fmt.Errorf("%s: all %d batches failed", r.Name(), stats.Batches)
	}
	return nil
}

func (r *Refresher) refreshBatch(ctx context.Context, symbols []string) (int, int, error) {
	var bars []domain.Bar
	err := util.Retry(ctx, r.opts.MaxAttempts, r.opts.RetryDelay, func(ctx context.Context) error {
		var err error
		bars, err = r.fetcher.Fetch(ctx, symbols, r.opts.Range)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	if len(bars) == 0 {
		return 0, 0, nil
	}
	if err := r.store.WriteBars(ctx, r.opts.Market, r.opts.Interval, bars); err != nil {
		return 0, 0, fmt.Errorf("writing bars: %w", err)
	}
	seen := make(map[string]struct{})
	for _, b := range bars {
		seen[b.Symbol] = struct{}{}
	}
	return len(bars), len(seen), nil
}

func split(symbols []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		out = append(out, symbols[i:min(i+size, len(symbols))])
	}
	return out
}

// FillDerived sets PreClose and ChangePct on bars that lack them, using the
// previous bar of the same symbol. bars must be sorted by timestamp within
// each symbol.
func FillDerived(bars []domain.Bar) {
	prev := make(map[string]float64)
	for i := range bars {
		b := &bars[i]
		if p, ok := prev[b.Symbol]; ok && b.PreClose == 0 {
			b.PreClose = p
		}
		if b.ChangePct == 0 && b.PreClose > 0 {
			b.ChangePct = (b.Close - b.PreClose) / b.PreClose * 100
		}
		prev[b.Symbol] = b.Close
	}
}
