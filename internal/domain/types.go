// Package domain holds the core value types shared by the store, indicator,
// strategy and engine packages.
package domain

import "time"

// Market identifies a trading venue family. Bars are stored per market.
type Market string

const (
	MarketCN Market = "cn"
	MarketUS Market = "us"
)

// Interval is the bar period. The numeric form mirrors the ktype flag
// accepted by the CLI (1 = daily, 2 = weekly, 3 = monthly).
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// IntervalFromKType maps a ktype number to an Interval. Unknown values map
// to daily.
func IntervalFromKType(ktype int) Interval {
	switch ktype {
	case 2:
		return IntervalWeekly
	case 3:
		return IntervalMonthly
	default:
		return IntervalDaily
	}
}

// KType is the inverse of IntervalFromKType.
func (i Interval) KType() int {
	switch i {
	case IntervalWeekly:
		return 2
	case IntervalMonthly:
		return 3
	default:
		return 1
	}
}

// Bar is one trading session for one symbol.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	PreClose  float64   `json:"pre_close"`
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount"`
	ChangePct float64   `json:"change_pct"`
}

// Date returns the session date formatted as YYYY-MM-DD.
func (b Bar) Date() string {
	return b.Timestamp.Format(DateLayout)
}

// StockInfo is the static per-symbol record used to derive market
// capitalization. Several records may exist for one symbol; the one with
// the latest ChangeDate wins.
type StockInfo struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Exchange   string    `json:"exchange"`
	Shares     float64   `json:"shares"`
	ListDate   time.Time `json:"list_date"`
	ChangeDate time.Time `json:"change_date"`
}

// Stock is a loaded symbol: its bar series and the values derived from its
// info record.
type Stock struct {
	Info       StockInfo `json:"info"`
	Bars       []Bar     `json:"bars"`
	MarketCap  float64   `json:"market_cap"`
	PrevAmount float64   `json:"prev_amount"`
}

// Side is the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is one ledger entry produced by the simulator.
type Trade struct {
	Side        Side      `json:"side"`
	Date        time.Time `json:"date"`
	Shares      int64     `json:"shares"`
	Price       float64   `json:"price"`
	Notional    float64   `json:"notional"`
	Cash        float64   `json:"cash"`
	ReturnPct   float64   `json:"return_pct"`
	Commission  float64   `json:"commission"`
	Description string    `json:"description"`
}
