package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBarDate(t *testing.T) {
	b := Bar{Timestamp: time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)}
	if got := b.Date(); got != "2024-03-07" {
		t.Errorf("Date() = %q, want 2024-03-07", got)
	}
}

func TestTradeJSON(t *testing.T) {
	tr := Trade{Side: SideSell, Date: day("2024-01-05"), Shares: 300, Price: 35, ReturnPct: 8.9, Description: "three days"}
	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["side"] != "sell" || got["shares"] != 300.0 || got["return_pct"] != 8.9 || got["description"] != "three days" {
		t.Errorf("wire form = %s", data)
	}
	if got["date"] != "2024-01-05T00:00:00Z" {
		t.Errorf("date = %v", got["date"])
	}
}

func TestIntervalKType(t *testing.T) {
	tests := []struct {
		ktype int
		want  Interval
	}{
		{1, IntervalDaily},
		{2, IntervalWeekly},
		{3, IntervalMonthly},
		{9, IntervalDaily},
	}
	for _, tt := range tests {
		got := IntervalFromKType(tt.ktype)
		if got != tt.want {
			t.Errorf("IntervalFromKType(%d) = %q, want %q", tt.ktype, got, tt.want)
		}
	}
	if IntervalWeekly.KType() != 2 {
		t.Errorf("IntervalWeekly.KType() = %d, want 2", IntervalWeekly.KType())
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2025-03-07", "2025-03-07 15:00:00", "20250307", "2025/03/07"} {
		got, err := ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if !got.Equal(day("2025-03-07")) {
			t.Errorf("ParseDate(%q) = %v, want 2025-03-07", s, got)
		}
	}
	if _, err := ParseDate("7 March"); err == nil {
		t.Error("ParseDate should reject unknown layouts")
	}
}

func TestMergeBarsKeepsLast(t *testing.T) {
	existing := []Bar{
		{Timestamp: day("2025-01-03"), Close: 3},
		{Timestamp: day("2025-01-02"), Close: 2},
	}
	incoming := []Bar{
		{Timestamp: day("2025-01-03").Add(15 * time.Hour), Close: 30},
		{Timestamp: day("2025-01-06"), Close: 6},
	}

	merged := MergeBars(existing, incoming)
	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3", len(merged))
	}
	wantClose := []float64{2, 30, 6}
	for i, b := range merged {
		if b.Close != wantClose[i] {
			t.Errorf("merged[%d].Close = %v, want %v", i, b.Close, wantClose[i])
		}
		if i > 0 && !merged[i-1].Timestamp.Before(b.Timestamp) {
			t.Errorf("merged not strictly ascending at %d", i)
		}
	}
}

func TestTruncateBars(t *testing.T) {
	bars := []Bar{
		{Timestamp: day("2025-01-02")},
		{Timestamp: day("2025-01-03")},
		{Timestamp: day("2025-01-06")},
	}
	if got := TruncateBars(bars, day("2025-01-03")); len(got) != 2 {
		t.Errorf("TruncateBars len = %d, want 2", len(got))
	}
	if got := TruncateBars(bars, day("2024-12-31")); len(got) != 0 {
		t.Errorf("TruncateBars before start len = %d, want 0", len(got))
	}
	if got := TruncateBars(bars, time.Time{}); len(got) != 3 {
		t.Errorf("TruncateBars zero end len = %d, want 3", len(got))
	}
}

func TestLatestInfo(t *testing.T) {
	if _, ok := LatestInfo(nil); ok {
		t.Error("LatestInfo(nil) should report !ok")
	}
	infos := []StockInfo{
		{Shares: 1, ChangeDate: day("2020-01-01")},
		{Shares: 3, ChangeDate: day("2024-01-01")},
		{Shares: 2, ChangeDate: day("2022-01-01")},
	}
	got, ok := LatestInfo(infos)
	if !ok || got.Shares != 3 {
		t.Errorf("LatestInfo = %+v, %v; want shares 3", got, ok)
	}
}
