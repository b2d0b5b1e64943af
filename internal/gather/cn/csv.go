// Package cn imports China A-share series exported as per-symbol CSV files.
package cn

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"yupan/internal/domain"
	"yupan/internal/gather"
	"yupan/internal/store"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*CSVImporter)(nil)

const (
	dataSuffix = "_data.csv"
	infoSuffix = "_info.csv"
)

// Store is what the importer writes to.
type Store interface {
	store.BarStore
	store.InfoStore
}

// ImportStats counts what one Run imported.
type ImportStats struct {
	BarFiles  int
	InfoFiles int
	Bars      int
	Infos     int
	Failed    int
}

// CSVImporter imports a directory of `{code}_{ktype}_data.csv` bar files and
// `{code}_info.csv` share-capital files into the store.
type CSVImporter struct {
	dir    string
	store  Store
	market domain.Market
	log    *slog.Logger
	stats  ImportStats
}

// NewCSVImporter creates a CSVImporter reading from dir.
func NewCSVImporter(dir string, s Store, market domain.Market, logger *slog.Logger) *CSVImporter {
	if market == "" {
		market = domain.MarketCN
	}
	return &CSVImporter{
		dir:    dir,
		store:  s,
		market: market,
		log:    logger.With("component", "gather", "gatherer", "cn-csv"),
	}
}

// Name returns the gatherer identifier.
func (g *CSVImporter) Name() string { return "cn-csv" }

// Stats returns the counters of the last Run.
func (g *CSVImporter) Stats() ImportStats { return g.stats }

// Run imports every recognised file in the directory. Files that fail to
// parse are logged and counted; Run returns an error only when the
// directory cannot be read or ctx is cancelled.
func (g *CSVImporter) Run(ctx context.Context) error {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", g.dir, err)
	}
	g.stats = ImportStats{}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if e.IsDir() {
			continue
		}
		path := filepath.Join(g.dir, name)

		switch {
		case strings.HasSuffix(name, infoSuffix):
			n, err := g.ImportInfo(ctx, path)
			if err != nil {
				g.stats.Failed++
				g.log.Warn("info import failed", "file", name, "error", err)
				continue
			}
			g.stats.InfoFiles++
			g.stats.Infos += n
		case strings.HasSuffix(name, dataSuffix):
			n, err := g.ImportBars(ctx, path)
			if err != nil {
				g.stats.Failed++
				g.log.Warn("bar import failed", "file", name, "error", err)
				continue
			}
			g.stats.BarFiles++
			g.stats.Bars += n
		}
	}

	g.log.Info("import complete", "bar_files", g.stats.BarFiles, "bars", g.stats.Bars,
		"info_files", g.stats.InfoFiles, "failed", g.stats.Failed)
	return nil
}

// ParseDataName splits `{code}_{ktype}_data.csv` into its code and interval.
func ParseDataName(name string) (string, domain.Interval, error) {
	base, ok := strings.CutSuffix(filepath.Base(name), dataSuffix)
	if !ok {
		return "", "", fmt.Errorf("%s: not a data file", name)
	}
	i := strings.LastIndexByte(base, '_')
	if i <= 0 {
		return "", "", fmt.Errorf("%s: missing ktype", name)
	}
	ktype, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return "", "", fmt.Errorf("%s: ktype: %w", name, err)
	}
	return base[:i], domain.IntervalFromKType(ktype), nil
}

// ImportBars imports one bar file. Rows merge keep-last with what the store
// already holds.
func (g *CSVImporter) ImportBars(ctx context.Context, path string) (int, error) {
	code, interval, err := ParseDataName(path)
	if err != nil {
		return 0, err
	}
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	bars := make([]domain.Bar, 0, len(rows))
	for i, r := range rows {
		ts, err := domain.ParseDate(r.str("trade_date"))
		if err != nil {
			return 0, fmt.Errorf("%s row %d: %w", filepath.Base(path), i+2, err)
		}
		b := domain.Bar{
			Symbol:    code,
			Timestamp: ts,
			Open:      r.float("open"),
			High:      r.float("high"),
			Low:       r.float("low"),
			Close:     r.float("close"),
			PreClose:  r.float("pre_close"),
			Volume:    r.float("volume"),
			Amount:    r.float("amount"),
			ChangePct: r.float("change_pct"),
		}
		if b.Close == 0 {
			return 0, fmt.Errorf("%s row %d: missing close", filepath.Base(path), i+2)
		}
		bars = append(bars, b)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	gather.FillDerived(bars)

	if err := g.store.WriteBars(ctx, g.market, interval, bars); err != nil {
		return 0, fmt.Errorf("writing %s: %w", code, err)
	}
	return len(bars), nil
}

// ImportInfo imports one share-capital file.
func (g *CSVImporter) ImportInfo(ctx context.Context, path string) (int, error) {
	code, ok := strings.CutSuffix(filepath.Base(path), infoSuffix)
	if !ok || code == "" {
		return 0, fmt.Errorf("%s: not an info file", path)
	}
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	infos := make([]domain.StockInfo, 0, len(rows))
	for _, r := range rows {
		info := domain.StockInfo{
			Symbol:   code,
			Name:     r.str("short_name"),
			Exchange: r.str("exchange"),
			Shares:   r.float("list_a_shares"),
		}
		if info.Shares == 0 {
			info.Shares = r.float("total_shares")
		}
		info.ListDate, _ = domain.ParseDate(r.str("list_date"))
		info.ChangeDate, _ = domain.ParseDate(r.str("change_date"))
		infos = append(infos, info)
	}
	if len(infos) == 0 {
		return 0, nil
	}
	if err := g.store.WriteInfo(ctx, g.market, infos); err != nil {
		return 0, fmt.Errorf("writing info %s: %w", code, err)
	}
	return len(infos), nil
}

// ---------------------------------------------------------------------------
// CSV helpers
// ---------------------------------------------------------------------------

// record is one CSV row addressed by header name.
type record struct {
	cols   map[string]int
	fields []string
}

func (r record) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// float parses a numeric column. Missing or malformed values read as 0.
func (r record) float(name string) float64 {
	f, err := strconv.ParseFloat(r.str(name), 64)
	if err != nil {
		return 0
	}
	return f
}

func readCSV(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		// Files written with a UTF-8 byte order mark carry it on the first
		// column name.
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var out []record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		out = append(out, record{cols: cols, fields: fields})
	}
	return out, nil
}
