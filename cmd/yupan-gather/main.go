// Command yupan-gather refreshes US equity bars from the Alpaca market-data
// API into the parquet store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/gather"
	"yupan/internal/gather/us"
	"yupan/internal/store"
	"yupan/internal/sweep"
	"yupan/internal/util"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	symbols := flag.String("symbols", "all", "comma list, \"file,<path>\" or \"all\" for every stored symbol")
	ktype := flag.Int("k", 1, "bar interval: 1 daily, 2 weekly, 3 monthly")
	startFlag := flag.String("start", "", "first session (default gather.start_date)")
	endFlag := flag.String("end", "", "last session (default latest finished trading day)")
	cfgPath := flag.String("config", os.Getenv("YUPAN_CONFIG"), "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		return fmt.Errorf("alpaca credentials missing: set APCA_API_KEY_ID and APCA_API_SECRET_KEY")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := *startFlag
	if start == "" {
		start = cfg.Gather.StartDate
	}
	rng := gather.DateRange{}
	if rng.Start, err = domain.ParseDate(start); err != nil {
		return err
	}
	if *endFlag != "" {
		if rng.End, err = domain.ParseDate(*endFlag); err != nil {
			return err
		}
	} else {
		cal := us.NewCalendarClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		rng.End, err = us.LatestFinishedTradingDay(cal, time.Now())
		if err != nil {
			rng.End = util.PreviousTradingDay(time.Now())
			logger.Warn("calendar lookup failed, using previous weekday", "end", rng.End.Format(domain.DateLayout), "error", err)
		}
	}

	interval := domain.IntervalFromKType(*ktype)
	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	list, err := sweep.ResolveSymbols(ctx, *symbols, pstore, domain.MarketUS, interval)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no symbols selected by %q", *symbols)
	}

	fetcher := us.NewAlpacaFetcher(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
		cfg.Alpaca.Feed, interval, cfg.Gather.RateLimitPerMin, logger)
	r := gather.NewRefresher(fetcher, pstore, gather.RefreshOptions{
		Market:      domain.MarketUS,
		Interval:    interval,
		Symbols:     list,
		Range:       rng,
		BatchSize:   cfg.Gather.BatchSize,
		MaxWorkers:  cfg.Gather.MaxWorkers,
		MaxAttempts: cfg.Gather.MaxAttempts,
	}, logger)

	if err := r.Run(ctx); err != nil {
		return err
	}
	st := r.Stats()
	fmt.Printf("%s: %d bars for %d symbols, %d/%d batches failed\n",
		r.Name(), st.Bars, st.Symbols, st.FailedBatches, st.Batches)
	return nil
}
