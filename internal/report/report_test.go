package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"yupan/internal/domain"
	"yupan/internal/engine"
	"yupan/internal/strategy"
	"yupan/internal/sweep"
)

func TestFormatInt(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{9600, "9,600"},
		{1234567, "1,234,567"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.in); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{500, "500"},
		{1500, "1.5K"},
		{2.5e6, "2.5M"},
		{5e10, "50.0B"},
		{-2.5e6, "-2.5M"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(8.9); got != "+8.90%" {
		t.Errorf("FormatPct(8.9) = %q", got)
	}
	if got := FormatPct(-3.125); got != "-3.12%" && got != "-3.13%" {
		t.Errorf("FormatPct(-3.125) = %q", got)
	}
	if got := FormatPrice(0); got != "-" {
		t.Errorf("FormatPrice(0) = %q", got)
	}
}

func TestWriteBacktest(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	rep := &engine.Report{
		RunID:  "run-1",
		Symbol: "600000.SH",
		Name:   "Pudong",
		Mode:   "fish_tub",
		Buy:    "3",
		Sell:   "1,8",
		Result: engine.Result{
			Trades: []domain.Trade{
				{Side: domain.SideBuy, Date: d(23), Shares: 300, Price: 32, Notional: 9600, Cash: 395, Commission: 5, Description: "buy 3"},
				{Side: domain.SideSell, Date: d(26), Shares: 300, Price: 35, Cash: 10890, ReturnPct: 9.375, Commission: 5, Description: "sell 1"},
			},
			Summary: engine.Summary{ReturnPct: 8.9, Operations: 2, Wins: 1},
		},
	}
	var buf bytes.Buffer
	if err := WriteBacktest(&buf, rep); err != nil {
		t.Fatalf("WriteBacktest: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2024-01-23", "300 @ 32.00", "+9.38%", "+8.90%", "rounds:   1, won 1", "fish_tub", "run-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSweep(t *testing.T) {
	rep := &sweep.Report{
		Operate:   strategy.OperateBuy,
		Symbols:   3,
		Succeeded: 2,
		Failed:    1,
		Cached:    true,
		Recommendations: []engine.Recommendation{
			{Symbol: "600000.SH", Name: "Pudong", Operate: strategy.OperateBuy, Date: time.Date(2024, 1, 23, 0, 0, 0, 0, time.UTC), Close: 32, MarketCap: 3.1e10, PrevAmount: 1e4, Description: "buy 3"},
		},
		Failures: []sweep.Failure{{Symbol: "E", Reason: "corrupt file"}},
	}
	var buf bytes.Buffer
	if err := WriteSweep(&buf, rep); err != nil {
		t.Fatalf("WriteSweep: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"3 symbols", "(cached)", "600000.SH", "31.0B", "E: corrupt file"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
