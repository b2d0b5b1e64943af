package util

import (
	"time"

	"yupan/internal/domain"
)

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not modelled.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PreviousTradingDay returns the last weekday strictly before t, at
// calendar-day granularity.
func PreviousTradingDay(t time.Time) time.Time {
	days := LastTradingDays(t, 1)
	return days[0]
}

// LastTradingDays returns the n weekdays strictly before t, most recent
// first. n < 1 is treated as 1.
func LastTradingDays(t time.Time, n int) []time.Time {
	if n < 1 {
		n = 1
	}
	cur := domain.NormalizeDate(t)
	days := make([]time.Time, 0, n)
	for len(days) < n {
		cur = cur.AddDate(0, 0, -1)
		if IsTradingDay(cur) {
			days = append(days, cur)
		}
	}
	return days
}
