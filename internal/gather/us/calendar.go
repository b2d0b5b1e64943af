package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// calendarClient is the subset of the Alpaca trading client used to read
// the market calendar.
type calendarClient interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

// NewCalendarClient returns an Alpaca trading client for calendar lookups.
func NewCalendarClient(apiKey, apiSecret, baseURL string) *alpaca.Client {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
}

// LatestFinishedTradingDay returns the most recent trading day whose market
// session has ended (after 20:05 ET, so extended hours data has settled).
func LatestFinishedTradingDay(client calendarClient, now time.Time) (time.Time, error) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}

	now = now.In(et)
	calendar, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}
	if len(calendar) == 0 {
		return time.Time{}, fmt.Errorf("no trading days returned from calendar")
	}

	today := now.Format("2006-01-02")
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 20, 5, 0, 0, et)

	for i := len(calendar) - 1; i >= 0; i-- {
		day := calendar[i]
		dayDate, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			continue
		}
		if day.Date == today {
			if now.After(cutoff) {
				return dayDate, nil
			}
			continue
		}
		if day.Date < today {
			return dayDate, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not determine latest finished trading day")
}
