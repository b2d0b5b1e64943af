// Command yupan backtests a strategy mode on one symbol or predicts buy and
// sell signals across many.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"yupan/internal/cache"
	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/engine"
	"yupan/internal/loader"
	"yupan/internal/report"
	"yupan/internal/store"
	"yupan/internal/strategy"
	"yupan/internal/strategy/builtins"
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
	code := flag.String("c", "", "symbol, comma list, \"all\" or \"file,<path>\"")
	ktype := flag.Int("k", 1, "bar interval: 1 daily, 2 weekly, 3 monthly")
	mode := flag.String("m", "", "strategy mode (default from config)")
	operate := flag.String("o", "back_test", "operation: back_test, buy or sell")
	tuning := flag.String("t", "", "mode tuning, e.g. period=5,market_cap=30000000000")
	buy := flag.String("b", "", "buy rule, e.g. 1,2 or 1+2")
	sell := flag.String("s", "", "sell rule, e.g. 1,6,7")
	dataPath := flag.String("p", "", "data directory (overrides config)")
	date := flag.String("q", "", "target date YYYY-MM-DD")
	debug := flag.Bool("d", false, "debug logging")
	condition := flag.String("condition", "", "screen: a market-cap floor or cap_above=,cap_under=,close_above=,close_under=")
	workers := flag.Int("workers", 0, "parallel symbols, typically 5 (default sweep.workers; 1 runs sequentially)")
	noCache := flag.Bool("no-cache", false, "bypass the recommendation cache")
	exec := flag.String("exec", "", "buy fill: close or next_open (default per mode)")
	cfgPath := flag.String("config", os.Getenv("YUPAN_CONFIG"), "config file")
	flag.Parse()

	if *code == "" {
		flag.Usage()
		return errors.New("-c is required")
	}
	op, err := strategy.ParseOperate(*operate)
	if err != nil {
		return err
	}
	execution, err := strategy.ParseExecution(*exec)
	if err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *dataPath != "" {
		cfg.Storage.DataDir = *dataPath
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if *workers > 0 {
		cfg.Sweep.Workers = *workers
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	market := domain.Market(cfg.Storage.Market)
	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	var ledger store.LedgerStore
	if cfg.Backtest.PersistLedger {
		sq, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer sq.Close()
		ledger = sq
	}

	runner := engine.NewRunner(cfg, builtins.Catalog(), loader.New(pstore, pstore, market, logger), ledger, logger)

	req := engine.Request{
		Interval:   domain.IntervalFromKType(*ktype),
		Operate:    op,
		Mode:       *mode,
		Tuning:     *tuning,
		Buy:        *buy,
		Sell:       *sell,
		Condition:  *condition,
		Execution:  execution,
		TargetDate: *date,
	}

	if op == strategy.OperateBacktest && isSingle(*code) {
		req.Symbol = *code
		rep, err := runner.Backtest(ctx, req)
		if err != nil {
			return err
		}
		return report.WriteBacktest(os.Stdout, rep)
	}

	var rc cache.Store
	if !*noCache {
		if rc, err = cache.New(cfg.Cache); err != nil {
			logger.Warn("cache unavailable, computing directly", "backend", cfg.Cache.Backend, "error", err)
			rc = nil
		}
		if rc != nil {
			defer rc.Close()
		}
	}

	sw := sweep.New(runner, sweep.Options{
		Bars:     pstore,
		Market:   market,
		Cache:    rc,
		Workers:  cfg.Sweep.Workers,
		DataPath: cfg.Storage.DataDir,
	}, logger)

	rep, err := sw.Run(ctx, sweep.Request{Selector: *code, Template: req, NoCache: *noCache})
	if rep != nil {
		if werr := report.WriteSweep(os.Stdout, rep); werr != nil {
			return werr
		}
	}
	return err
}

// isSingle reports whether selector names exactly one symbol.
func isSingle(selector string) bool {
	return selector != "all" && !strings.HasPrefix(selector, "file,") && !strings.Contains(selector, ",")
}
