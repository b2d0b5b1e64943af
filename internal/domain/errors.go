package domain

import "errors"

var (
	// ErrDataUnavailable is returned when a series is missing or has fewer
	// than two sessions.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrThresholdUnmet is returned when a symbol fails a screening
	// condition such as the market-cap floor.
	ErrThresholdUnmet = errors.New("threshold unmet")

	// ErrDateNotFound is returned when a requested session date is absent
	// from the series. There is no nearest-date fallback.
	ErrDateNotFound = errors.New("date not found")
)
