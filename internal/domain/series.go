package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"20060102",
	"2006/01/02",
}

// ParseDate parses s in any of the accepted layouts and truncates it to
// calendar-day granularity in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: unrecognised layout", s)
}

// NormalizeDate drops the time-of-day component.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return NormalizeDate(a).Equal(NormalizeDate(b))
}

// MergeBars combines existing and incoming bars for one symbol. Dates are
// normalized, duplicates resolve to the incoming bar, and the result is
// sorted ascending.
func MergeBars(existing, incoming []Bar) []Bar {
	byDate := make(map[time.Time]Bar, len(existing)+len(incoming))
	for _, b := range existing {
		b.Timestamp = NormalizeDate(b.Timestamp)
		byDate[b.Timestamp] = b
	}
	for _, b := range incoming {
		b.Timestamp = NormalizeDate(b.Timestamp)
		byDate[b.Timestamp] = b
	}

	merged := make([]Bar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// TruncateBars returns the prefix of a sorted series whose dates are on or
// before end. A zero end returns bars unchanged.
func TruncateBars(bars []Bar, end time.Time) []Bar {
	if end.IsZero() {
		return bars
	}
	end = NormalizeDate(end)
	n := sort.Search(len(bars), func(i int) bool {
		return NormalizeDate(bars[i].Timestamp).After(end)
	})
	return bars[:n]
}

// LatestInfo picks the record with the greatest ChangeDate. ok is false
// when infos is empty.
func LatestInfo(infos []StockInfo) (latest StockInfo, ok bool) {
	for i, info := range infos {
		if i == 0 || info.ChangeDate.After(latest.ChangeDate) {
			latest = info
			ok = true
		}
	}
	return latest, ok
}
