package strategy

import (
	"time"

	"yupan/internal/domain"
	"yupan/internal/indicator"
)

// RunState is the mutable record of one simulation over one symbol. It is
// owned by a single goroutine and discarded when the simulation returns.
type RunState struct {
	Holding    bool
	Cash       float64
	Base       float64
	EntryPrice float64
	EntryDate  time.Time
	Shares     int64
	DaysHeld   int
	Wins       int
	Losses     int

	// Held holds the bars seen since the position was opened, entry bar
	// first. It is empty while flat.
	Held []*indicator.Row

	Ledger []domain.Trade

	// Flags carries signals between predicate calls, e.g. whether the
	// series is inside a fish-tub cycle.
	Flags map[string]bool
}

// NewRunState returns a flat state holding cash.
func NewRunState(cash float64) *RunState {
	return &RunState{
		Cash:  cash,
		Base:  cash,
		Flags: make(map[string]bool),
	}
}

// Flag reads a named flag. Missing flags are false.
func (s *RunState) Flag(name string) bool { return s.Flags[name] }

// SetFlag writes a named flag.
func (s *RunState) SetFlag(name string, v bool) {
	if s.Flags == nil {
		s.Flags = make(map[string]bool)
	}
	s.Flags[name] = v
}

// Gain is the fractional change from the entry price to price.
func (s *RunState) Gain(price float64) float64 {
	if s.EntryPrice == 0 {
		return 0
	}
	return (price - s.EntryPrice) / s.EntryPrice
}

// LastTrade returns the most recent ledger entry.
func (s *RunState) LastTrade() (domain.Trade, bool) {
	if len(s.Ledger) == 0 {
		return domain.Trade{}, false
	}
	return s.Ledger[len(s.Ledger)-1], true
}
