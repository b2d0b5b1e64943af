package cn

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"yupan/internal/domain"
	"yupan/internal/store"
	"yupan/internal/util"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestParseDataName(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		interval domain.Interval
		wantErr  bool
	}{
		{"600000_1_data.csv", "600000", domain.IntervalDaily, false},
		{"/tmp/x/000001_2_data.csv", "000001", domain.IntervalWeekly, false},
		{"300750_3_data.csv", "300750", domain.IntervalMonthly, false},
		{"600000_data.csv", "", "", true},
		{"600000_x_data.csv", "", "", true},
		{"600000_info.csv", "", "", true},
	}
	for _, tt := range tests {
		code, interval, err := ParseDataName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDataName(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if code != tt.code || interval != tt.interval {
			t.Errorf("ParseDataName(%q) = %q, %q; want %q, %q", tt.name, code, interval, tt.code, tt.interval)
		}
	}
}

func TestCSVImporterRun(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "600000_1_data.csv", "\ufefftrade_date,stock_code,open,close,high,low,volume,amount,change_pct\n"+
		"2024-01-03,600000,10.1,10.2,10.3,10.0,1000,10200,\n"+
		"2024-01-02,600000,9.9,10.0,10.1,9.8,900,9000,1.5\n")
	writeFile(t, src, "600000_info.csv", "stock_code,short_name,exchange,list_date,change_date,list_a_shares\n"+
		"600000,Pudong,SH,1999-11-10,2020-01-01,29352000000\n"+
		"600000,Pudong,SH,1999-11-10,2023-06-30,29352080397\n")
	writeFile(t, src, "000001_1_data.csv", "trade_date,close\nnot-a-date,1\n")
	writeFile(t, src, "README.txt", "ignored")

	ps := store.NewParquetStore(t.TempDir())
	imp := NewCSVImporter(src, ps, "", util.Discard())
	if imp.Name() != "cn-csv" {
		t.Errorf("Name() = %q", imp.Name())
	}
	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st := imp.Stats()
	if st.BarFiles != 1 || st.Bars != 2 || st.InfoFiles != 1 || st.Infos != 2 || st.Failed != 1 {
		t.Errorf("stats = %+v", st)
	}

	ctx := context.Background()
	bars, err := ps.ReadBars(ctx, "600000", domain.MarketCN, domain.IntervalDaily, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(bars) != 2 || bars[0].Date() != "2024-01-02" {
		t.Fatalf("bars = %+v", bars)
	}
	if bars[1].PreClose != 10 {
		t.Errorf("derived PreClose = %v, want 10", bars[1].PreClose)
	}
	if bars[0].ChangePct != 1.5 {
		t.Errorf("ChangePct = %v, want the file's 1.5", bars[0].ChangePct)
	}

	infos, err := ps.ReadInfo(ctx, "600000", domain.MarketCN)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	latest, ok := domain.LatestInfo(infos)
	if !ok || latest.Shares != 29352080397 || latest.Name != "Pudong" {
		t.Errorf("latest info = %+v", latest)
	}
}

func TestCSVImporterMissingDir(t *testing.T) {
	imp := NewCSVImporter(filepath.Join(t.TempDir(), "nope"), store.NewParquetStore(t.TempDir()), domain.MarketCN, util.Discard())
	if err := imp.Run(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}
