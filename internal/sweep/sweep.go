// Package sweep runs one strategy request across many symbols, sequentially
// or on a bounded worker pool, and memoizes prediction sweeps.
package sweep

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"yupan/internal/cache"
	"yupan/internal/domain"
	"yupan/internal/engine"
	"yupan/internal/metrics"
	"yupan/internal/store"
	"yupan/internal/strategy"
)

// Request is a sweep over the symbols named by Selector. Template carries
// every other parameter; its Symbol is ignored.
type Request struct {
	Selector string         `json:"selector"`
	Template engine.Request `json:"request"`
	NoCache  bool           `json:"no_cache,omitempty"`
}

// Failure records a symbol that could not be processed.
type Failure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Report collects a sweep's results in input order.
type Report struct {
	Operate         strategy.Operate        `json:"operate"`
	Symbols         int                     `json:"symbols"`
	Succeeded       int                     `json:"succeeded"`
	Failed          int                     `json:"failed"`
	Skipped         int                     `json:"skipped"`
	Recommendations []engine.Recommendation `json:"recommendations,omitempty"`
	Backtests       []*engine.Report        `json:"backtests,omitempty"`
	Failures        []Failure               `json:"failures,omitempty"`
	// Cached is set when the report came from the cache.
	Cached bool `json:"cached,omitempty"`
	// Partial is set when the sweep was cancelled before every symbol ran.
	Partial bool `json:"partial,omitempty"`
}

// Sweeper runs sweeps. It is safe for concurrent use.
type Sweeper struct {
	runner   *engine.Runner
	bars     store.BarStore
	market   domain.Market
	cache    cache.Store
	metrics  *metrics.Metrics
	workers  int
	dataPath string
	logger   *slog.Logger
	now      func() time.Time
}

// Options configures a Sweeper. Cache and Metrics may be nil.
type Options struct {
	Bars     store.BarStore
	Market   domain.Market
	Cache    cache.Store
	Metrics  *metrics.Metrics
	Workers  int
	DataPath string
}

// New creates a Sweeper.
func New(runner *engine.Runner, opts Options, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		runner:   runner,
		bars:     opts.Bars,
		market:   opts.Market,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		workers:  opts.Workers,
		dataPath: opts.DataPath,
		logger:   logger.With("component", "sweep"),
		now:      time.Now,
	}
}

// SetClock replaces the clock used for default cache keys.
func (s *Sweeper) SetClock(now func() time.Time) { s.now = now }

var errPartial = errors.New("sweep cancelled")

// Run executes req. Prediction sweeps go through the cache unless NoCache
// is set; backtests always run. A cancelled sweep returns the partial
// report together with the context error.
func (s *Sweeper) Run(ctx context.Context, req Request) (*Report, error) {
	op := req.Template.Operate
	if op == "" {
		op = strategy.OperateBacktest
		req.Template.Operate = op
	}
	if op == strategy.OperateBacktest || req.NoCache || s.cache == nil {
		rep, err := s.run(ctx, req)
		if err != nil {
			return nil, err
		}
		if rep.Partial {
			return rep, ctx.Err()
		}
		return rep, nil
	}

	key := cache.Key(s.cacheParams(req), s.now())
	var partial *Report
	rep, hit, err := cache.GetOrCompute(ctx, s.cache, key, s.logger, func(ctx context.Context) (*Report, error) {
		rep, err := s.run(ctx, req)
		if err != nil {
			return nil, err
		}
		if rep.Partial {
			partial = rep
			return nil, errPartial
		}
		return rep, nil
	})
	s.metrics.ObserveCache(hit)
	if errors.Is(err, errPartial) {
		return partial, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if hit {
		rep.Cached = true
		s.logger.Info("sweep served from cache", "selector", req.Selector, "operate", op)
	}
	return rep, nil
}

func (s *Sweeper) cacheParams(req Request) cache.Params {
	t := req.Template
	return cache.Params{
		Selector:   req.Selector,
		Interval:   string(t.Interval),
		Operate:    string(t.Operate),
		Mode:       t.Mode,
		Tuning:     t.Tuning,
		Buy:        t.Buy,
		Sell:       t.Sell,
		Condition:  t.Condition,
		DataPath:   s.dataPath,
		TargetDate: t.TargetDate,
	}
}

// outcome is one symbol's result.
type outcome struct {
	ran bool
	rec *engine.Recommendation
	rep *engine.Report
	err error
}

func (s *Sweeper) run(ctx context.Context, req Request) (*Report, error) {
	interval := req.Template.Interval
	if interval == "" {
		interval = domain.IntervalDaily
	}
	symbols, err := ResolveSymbols(ctx, req.Selector, s.bars, s.market, interval)
	if err != nil {
		return nil, err
	}

	results := make([]outcome, len(symbols))
	if s.workers <= 1 {
		for i, sym := range symbols {
			if ctx.Err() != nil {
				break
			}
			results[i] = s.one(ctx, req.Template, sym)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.workers)
		for i, sym := range symbols {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				results[i] = s.one(ctx, req.Template, sym)
				return nil
			})
		}
		g.Wait()
	}

	rep := &Report{Operate: req.Template.Operate, Symbols: len(symbols)}
	for i, r := range results {
		switch {
		case !r.ran:
			rep.Partial = true
		case r.err == nil:
			rep.Succeeded++
			if r.rec != nil {
				rep.Recommendations = append(rep.Recommendations, *r.rec)
			}
			if r.rep != nil {
				rep.Backtests = append(rep.Backtests, r.rep)
			}
		case errors.Is(r.err, domain.ErrThresholdUnmet), errors.Is(r.err, domain.ErrDataUnavailable):
			rep.Skipped++
		default:
			rep.Failed++
			rep.Failures = append(rep.Failures, Failure{Symbol: symbols[i], Reason: r.err.Error()})
		}
	}
	s.metrics.AddRecommendations(string(rep.Operate), len(rep.Recommendations))
	s.logger.Info("sweep done",
		"operate", rep.Operate,
		"symbols", rep.Symbols,
		"succeeded", rep.Succeeded,
		"failed", rep.Failed,
		"skipped", rep.Skipped,
		"recommendations", len(rep.Recommendations),
		"partial", rep.Partial)
	return rep, nil
}

// one processes a single symbol. The in-flight symbol is not interrupted by
// cancellation.
func (s *Sweeper) one(ctx context.Context, tmpl engine.Request, symbol string) outcome {
	req := tmpl
	req.Symbol = symbol
	start := time.Now()

	var o outcome
	o.ran = true
	if req.Operate == strategy.OperateBacktest {
		o.rep, o.err = s.runner.Backtest(context.WithoutCancel(ctx), req)
	} else {
		o.rec, o.err = s.runner.Predict(context.WithoutCancel(ctx), req)
	}

	label := metrics.OutcomeSucceeded
	switch {
	case o.err == nil:
	case errors.Is(o.err, domain.ErrThresholdUnmet), errors.Is(o.err, domain.ErrDataUnavailable):
		label = metrics.OutcomeSkipped
		s.logger.Debug("symbol skipped", "symbol", symbol, "error", o.err)
	default:
		label = metrics.OutcomeFailed
		s.logger.Warn("symbol failed", "symbol", symbol, "error", o.err)
	}
	s.metrics.ObserveSymbol(string(req.Operate), label, time.Since(start))
	return o
}

// ---------------------------------------------------------------------------
// Symbol selection
// ---------------------------------------------------------------------------

// ResolveSymbols expands a selector: "all" lists every stored symbol,
// "file,<path>" reads one symbol per line, anything else is a
// comma-separated list.
func ResolveSymbols(ctx context.Context, selector string, bars store.BarStore, market domain.Market, interval domain.Interval) ([]string, error) {
	selector = strings.TrimSpace(selector)
	switch {
	case selector == "":
		return nil, errors.New("empty symbol selector")
	case selector == "all":
		if bars == nil {
			return nil, errors.New(`selector "all" needs a bar store`)
		}
		syms, err := bars.ListSymbols(ctx, market, interval)
		if err != nil {
			return nil, fmt.Errorf("listing symbols: %w", err)
		}
		return syms, nil
	case strings.HasPrefix(selector, "file,"):
		return readSymbolFile(strings.TrimPrefix(selector, "file,"))
	}

	var out []string
	for _, sym := range strings.Split(selector, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			out = append(out, sym)
		}
	}
	return out, nil
}

// readSymbolFile reads one symbol per line, skipping blanks and # comments.
func readSymbolFile(path string) ([]string, error) {
	f, err := os.Open(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("reading symbol file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
