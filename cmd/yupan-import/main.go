// Command yupan-import loads `{code}_{ktype}_data.csv` and `{code}_info.csv`
// exports into the parquet store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/gather/cn"
	"yupan/internal/store"
	"yupan/internal/util"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", "", "directory of CSV exports (default $STOCK_WORK_DIR/data)")
	market := flag.String("market", "", "market to import into (default storage.market)")
	cfgPath := flag.String("config", os.Getenv("YUPAN_CONFIG"), "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	src := *dir
	if src == "" {
		work := os.Getenv("STOCK_WORK_DIR")
		if work == "" {
			return fmt.Errorf("-dir or STOCK_WORK_DIR is required")
		}
		src = filepath.Join(work, "data")
	}
	m := domain.Market(*market)
	if m == "" {
		m = domain.Market(cfg.Storage.Market)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	imp := cn.NewCSVImporter(src, store.NewParquetStore(cfg.Storage.DataDir), m, logger)
	if err := imp.Run(ctx); err != nil {
		return err
	}
	st := imp.Stats()
	fmt.Printf("imported %d bars from %d files and %d info records from %d files into %s (%d failed)\n",
		st.Bars, st.BarFiles, st.Infos, st.InfoFiles, cfg.Storage.DataDir, st.Failed)
	return nil
}
