// Command yupan-server serves backtests and predictions over HTTP, with a
// gRPC health endpoint and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"yupan/internal/api"
	"yupan/internal/cache"
	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/engine"
	"yupan/internal/loader"
	"yupan/internal/metrics"
	"yupan/internal/store"
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
	cfgPath := flag.String("config", os.Getenv("YUPAN_CONFIG"), "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	rc, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	if rc != nil {
		defer rc.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	runner := engine.NewRunner(cfg, builtins.Catalog(), loader.New(pstore, pstore, market, logger), ledger, logger)
	sw := sweep.New(runner, sweep.Options{
		Bars:     pstore,
		Market:   market,
		Cache:    rc,
		Metrics:  m,
		Workers:  cfg.Sweep.Workers,
		DataPath: cfg.Storage.DataDir,
	}, logger)

	srv := api.NewServer(cfg, runner, sw, m, logger)
	logger.Info("yupan-server starting", "host", cfg.Server.Host, "port", cfg.Server.Port,
		"grpc_port", cfg.Server.GRPCPort, "market", market, "cache", cfg.Cache.Backend)
	return srv.ListenAndServe(ctx)
}
