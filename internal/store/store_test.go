package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"yupan/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("600000.sh", domain.MarketCN, domain.IntervalWeekly, 2024)
	want := filepath.Join("/data", "cn", "weekly", "600000.SH", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}

	ip := ps.infoPath("600000.sh", domain.MarketCN)
	want = filepath.Join("/data", "cn", "info", "600000.SH.parquet")
	if ip != want {
		t.Errorf("infoPath mismatch:\n  got  %s\n  want %s", ip, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "000001.SZ", Timestamp: day(2023, 12, 29), Open: 9.1, High: 9.4, Low: 9.0, Close: 9.3, PreClose: 9.1, Volume: 1e6, Amount: 9.3e6, ChangePct: 2.2},
		{Symbol: "000001.SZ", Timestamp: day(2024, 1, 2), Open: 9.3, High: 9.5, Low: 9.2, Close: 9.4, PreClose: 9.3, Volume: 2e6, Amount: 1.88e7, ChangePct: 1.08},
	}
	if err := ps.WriteBars(ctx, domain.MarketCN, domain.IntervalDaily, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "000001.SZ", domain.MarketCN, domain.IntervalDaily, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 9.3 || got[1].Amount != 1.88e7 || got[1].PreClose != 9.3 {
		t.Errorf("ReadBars = %+v", got)
	}

	got, err = ps.ReadBars(ctx, "000001.SZ", domain.MarketCN, domain.IntervalDaily, day(2024, 1, 1), time.Time{})
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 || got[0].Date() != "2024-01-02" {
		t.Errorf("ReadBars from 2024 = %v, want only 2024-01-02", got)
	}

	got, err = ps.ReadBars(ctx, "000001.SZ", domain.MarketCN, domain.IntervalWeekly, time.Time{}, time.Time{})
	if err != nil || len(got) != 0 {
		t.Errorf("weekly ReadBars = %v, %v; want empty", got, err)
	}
}

func TestParquetStoreMergeBarsKeepsLast(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	first := []domain.Bar{
		{Symbol: "AAPL", Timestamp: day(2024, 3, 1), Close: 403},
		{Symbol: "AAPL", Timestamp: day(2024, 3, 4), Close: 408},
	}
	if err := ps.WriteBars(ctx, domain.MarketUS, domain.IntervalDaily, first); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}
	second := []domain.Bar{
		{Symbol: "AAPL", Timestamp: day(2024, 3, 4).Add(15 * time.Hour), Close: 409},
		{Symbol: "AAPL", Timestamp: day(2024, 3, 5), Close: 410},
	}
	if err := ps.WriteBars(ctx, domain.MarketUS, domain.IntervalDaily, second); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", domain.MarketUS, domain.IntervalDaily, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadBars returned %d bars after merge, want 3", len(got))
	}
	if got[1].Close != 409 {
		t.Errorf("2024-03-04 close = %v, want the later write 409", got[1].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: day(2024, 1, 2), Close: 185.5},
		{Symbol: "GOOGL", Timestamp: day(2024, 1, 2), Close: 140.5},
	}
	if err := ps.WriteBars(ctx, domain.MarketUS, domain.IntervalDaily, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx, domain.MarketUS, domain.IntervalDaily)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}

	symbols, err = ps.ListSymbols(ctx, domain.MarketCN, domain.IntervalDaily)
	if err != nil || symbols != nil {
		t.Errorf("ListSymbols(cn) = %v, %v; want nil, nil", symbols, err)
	}
}

func TestParquetStoreInfo(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	infos := []domain.StockInfo{
		{Symbol: "600000.SH", Name: "Pudong Dev", Shares: 2.9e10, ListDate: day(1999, 11, 10), ChangeDate: day(2020, 6, 1)},
		{Symbol: "600000.SH", Name: "Pudong Dev", Shares: 2.93e10, ListDate: day(1999, 11, 10), ChangeDate: day(2022, 6, 1)},
	}
	if err := ps.WriteInfo(ctx, domain.MarketCN, infos); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	update := []domain.StockInfo{
		{Symbol: "600000.SH", Name: "Pudong Dev", Shares: 2.94e10, ListDate: day(1999, 11, 10), ChangeDate: day(2022, 6, 1)},
	}
	if err := ps.WriteInfo(ctx, domain.MarketCN, update); err != nil {
		t.Fatalf("WriteInfo (update): %v", err)
	}

	got, err := ps.ReadInfo(ctx, "600000.SH", domain.MarketCN)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadInfo returned %d records, want 2", len(got))
	}
	latest, ok := domain.LatestInfo(got)
	if !ok || latest.Shares != 2.94e10 {
		t.Errorf("latest shares = %v, want 2.94e10", latest.Shares)
	}

	missing, err := ps.ReadInfo(ctx, "000002.SZ", domain.MarketCN)
	if err != nil || len(missing) != 0 {
		t.Errorf("ReadInfo(missing) = %v, %v; want empty", missing, err)
	}
}

func TestSQLiteStoreLedger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()
	ctx := context.Background()

	trades := []domain.Trade{
		{Side: domain.SideBuy, Date: day(2024, 1, 2), Shares: 300, Price: 32, Notional: 9600, Cash: 395, Commission: 5, Description: "buy 3"},
		{Side: domain.SideSell, Date: day(2024, 1, 5), Shares: 300, Price: 35, Cash: 10890, ReturnPct: 9.375, Commission: 5, Description: "sell 1"},
	}
	if err := store.SaveLedger(ctx, "run-1", "000001.SZ", "fish_tub", trades); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}

	got, err := store.ListTrades(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListTrades returned %d trades, want 2", len(got))
	}
	if got[0].Side != domain.SideBuy || got[1].Side != domain.SideSell {
		t.Errorf("sides = %s, %s", got[0].Side, got[1].Side)
	}
	if got[1].ReturnPct != 9.375 || !got[1].Date.Equal(day(2024, 1, 5)) {
		t.Errorf("sell trade = %+v", got[1])
	}

	if err := store.SaveLedger(ctx, "run-1", "000001.SZ", "fish_tub", trades[:1]); err != nil {
		t.Fatalf("SaveLedger (replace): %v", err)
	}
	got, _ = store.ListTrades(ctx, "run-1")
	if len(got) != 1 {
		t.Errorf("after replace ListTrades returned %d trades, want 1", len(got))
	}

	none, err := store.ListTrades(ctx, "unknown")
	if err != nil || len(none) != 0 {
		t.Errorf("ListTrades(unknown) = %v, %v", none, err)
	}
}
