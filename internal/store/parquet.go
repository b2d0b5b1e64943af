package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"yupan/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*ParquetStore)(nil)
var _ InfoStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore and InfoStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	PreClose  float64 `parquet:"pre_close"`
	Volume    float64 `parquet:"volume"`
	Amount    float64 `parquet:"amount"`
	ChangePct float64 `parquet:"change_pct"`
}

// InfoRecord is the Parquet schema for static stock info.
type InfoRecord struct {
	Symbol     string  `parquet:"symbol"`
	Name       string  `parquet:"name"`
	Exchange   string  `parquet:"exchange"`
	Shares     float64 `parquet:"shares"`
	ListDate   int64   `parquet:"list_date,timestamp(millisecond)"`
	ChangeDate int64   `parquet:"change_date,timestamp(millisecond)"`
}

func barRecord(b domain.Bar) BarRecord {
	return BarRecord{
		Symbol:    strings.ToUpper(b.Symbol),
		Timestamp: domain.NormalizeDate(b.Timestamp).UnixMilli(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		PreClose:  b.PreClose,
		Volume:    b.Volume,
		Amount:    b.Amount,
		ChangePct: b.ChangePct,
	}
}

func (r BarRecord) bar() domain.Bar {
	return domain.Bar{
		Symbol:    r.Symbol,
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		PreClose:  r.PreClose,
		Volume:    r.Volume,
		Amount:    r.Amount,
		ChangePct: r.ChangePct,
	}
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bar data to Parquet files organized by symbol and year.
// Each symbol+year combination produces a separate file at:
//
//	<DataDir>/<market>/<interval>/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteBars(_ context.Context, market domain.Market, interval domain.Interval, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		rec := barRecord(b)
		k := key{symbol: rec.Symbol, year: b.Timestamp.Year()}
		groups[k] = append(groups[k], rec)
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, market, interval, k.year)

		existing, err := readParquetFile[BarRecord](path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading bars for %s/%d: %w", k.symbol, k.year, err)
		}
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads bar data from Parquet files for the given symbol and time range.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, market domain.Market, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	years, err := s.barYears(symbol, market, interval)
	if err != nil {
		return nil, err
	}

	var bars []domain.Bar
	for _, year := range years {
		if (!start.IsZero() && year < start.Year()) || (!end.IsZero() && year > end.Year()) {
			continue
		}
		path := s.barPath(symbol, market, interval, year)
		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if !start.IsZero() && ts.Before(domain.NormalizeDate(start)) {
				continue
			}
			if !end.IsZero() && ts.After(domain.NormalizeDate(end)) {
				continue
			}
			bars = append(bars, r.bar())
		}
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// ListSymbols lists all symbols that have bar data in the given market and
// interval.
func (s *ParquetStore) ListSymbols(_ context.Context, market domain.Market, interval domain.Interval) ([]string, error) {
	dir := filepath.Join(s.DataDir, string(market), string(interval))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// barYears returns the years with a bar file for symbol, ascending.
func (s *ParquetStore) barYears(symbol string, market domain.Market, interval domain.Interval) ([]int, error) {
	dir := filepath.Join(s.DataDir, string(market), string(interval), strings.ToUpper(symbol))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var years []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".parquet" {
			continue
		}
		y, err := strconv.Atoi(strings.TrimSuffix(name, ".parquet"))
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// ---------------------------------------------------------------------------
// InfoStore implementation
// ---------------------------------------------------------------------------

// WriteInfo writes info records to one Parquet file per symbol at:
//
//	<DataDir>/<market>/info/<SYMBOL>.parquet
func (s *ParquetStore) WriteInfo(_ context.Context, market domain.Market, infos []domain.StockInfo) error {
	groups := make(map[string][]InfoRecord)
	for _, in := range infos {
		sym := strings.ToUpper(in.Symbol)
		groups[sym] = append(groups[sym], InfoRecord{
			Symbol:     sym,
			Name:       in.Name,
			Exchange:   in.Exchange,
			Shares:     in.Shares,
			ListDate:   in.ListDate.UnixMilli(),
			ChangeDate: in.ChangeDate.UnixMilli(),
		})
	}

	for sym, records := range groups {
		path := s.infoPath(sym, market)
		existing, err := readParquetFile[InfoRecord](path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading info for %s: %w", sym, err)
		}
		if err := writeParquetFile(path, mergeInfoRecords(existing, records)); err != nil {
			return fmt.Errorf("writing info for %s: %w", sym, err)
		}
	}
	return nil
}

// ReadInfo reads the info records for symbol. A symbol without a file has no
// records.
func (s *ParquetStore) ReadInfo(_ context.Context, symbol string, market domain.Market) ([]domain.StockInfo, error) {
	records, err := readParquetFile[InfoRecord](s.infoPath(symbol, market))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]domain.StockInfo, len(records))
	for i, r := range records {
		out[i] = domain.StockInfo{
			Symbol:     r.Symbol,
			Name:       r.Name,
			Exchange:   r.Exchange,
			Shares:     r.Shares,
			ListDate:   time.UnixMilli(r.ListDate).UTC(),
			ChangeDate: time.UnixMilli(r.ChangeDate).UTC(),
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/<market>/<interval>/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(symbol string, market domain.Market, interval domain.Interval, year int) string {
	return filepath.Join(s.DataDir, string(market), string(interval), strings.ToUpper(symbol), strconv.Itoa(year)+".parquet")
}

// infoPath returns the filesystem path for an info Parquet file.
// Layout: <dataDir>/<market>/info/<SYMBOL>.parquet
func (s *ParquetStore) infoPath(symbol string, market domain.Market) string {
	return filepath.Join(s.DataDir, string(market), "info", strings.ToUpper(symbol)+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp), preferring
// new records over existing ones.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// mergeInfoRecords deduplicates info records by change date, preferring new
// records over existing ones. Results are sorted by change date.
func mergeInfoRecords(existing, incoming []InfoRecord) []InfoRecord {
	seen := make(map[int64]InfoRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ChangeDate] = r
	}
	for _, r := range incoming {
		seen[r.ChangeDate] = r
	}

	merged := make([]InfoRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ChangeDate < merged[j].ChangeDate
	})
	return merged
}
