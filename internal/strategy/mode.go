package strategy

import (
	"errors"
	"fmt"
	"sort"

	"yupan/internal/domain"
	"yupan/internal/indicator"
)

// Operate is the operation a series is prepared for.
type Operate string

const (
	OperateBacktest Operate = "back_test"
	OperateBuy      Operate = "buy"
	OperateSell     Operate = "sell"
)

// ParseOperate validates an operation name.
func ParseOperate(s string) (Operate, error) {
	switch op := Operate(s); op {
	case OperateBacktest, OperateBuy, OperateSell:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q (want back_test, buy or sell)", s)
}

// Execution selects the fill price of a buy.
type Execution string

const (
	// ExecuteClose fills at the signal bar's close.
	ExecuteClose Execution = "close"
	// ExecuteNextOpen fills at the following bar's open.
	ExecuteNextOpen Execution = "next_open"
)

// OpenPosition selects how a position still open after the last bar enters
// the summary return.
type OpenPosition string

const (
	// OpenMarkAtEntry counts the position at its entry notional.
	OpenMarkAtEntry OpenPosition = "mark_at_entry"
	// OpenExclude ignores the position, so only cash counts.
	OpenExclude OpenPosition = "exclude"
	// OpenForceClose sells at the last close and records a sell trade.
	OpenForceClose OpenPosition = "force_close"
)

// ErrInvalidPolicy is returned for an unrecognised execution or
// open-position name.
var ErrInvalidPolicy = errors.New("invalid policy")

// ParseExecution validates an execution name. An empty name is unset and
// leaves the choice to the mode.
func ParseExecution(s string) (Execution, error) {
	switch e := Execution(s); e {
	case "", ExecuteClose, ExecuteNextOpen:
		return e, nil
	}
	return "", fmt.Errorf("%w: execution %q (want close or next_open)", ErrInvalidPolicy, s)
}

// ParseOpenPosition validates an open-position name. An empty name is unset.
func ParseOpenPosition(s string) (OpenPosition, error) {
	switch o := OpenPosition(s); o {
	case "", OpenMarkAtEntry, OpenExclude, OpenForceClose:
		return o, nil
	}
	return "", fmt.Errorf("%w: open position %q (want mark_at_entry, exclude or force_close)", ErrInvalidPolicy, s)
}

// Policy groups the behaviours that differ between strategy modes.
type Policy struct {
	Execution      Execution
	Composition    Composition
	OpenPosition   OpenPosition
	MarketCapFloor float64
	DefaultBuy     string
	DefaultSell    string
}

// PretreatFunc adds mode-specific columns to enriched rows. It visits every
// row for back_test and only the last row otherwise.
type PretreatFunc func(rows []indicator.Row, op Operate, t indicator.Tuning)

// Mode is a named strategy family: a buy registry, a sell registry, the
// pretreatment that computes the columns they read, and its policy.
type Mode struct {
	Name        string
	Description string
	Buy         *Registry
	Sell        *Registry
	Pretreat    PretreatFunc
	Policy      Policy
}

// Prepare enriches bars and runs the mode's pretreatment.
func (m *Mode) Prepare(bars []domain.Bar, op Operate, tuning string) ([]indicator.Row, error) {
	t := indicator.ParseTuning(tuning)
	p := indicator.DefaultParams().WithTuning(t)
	p.LastOnly = op != OperateBacktest

	rows, err := indicator.Enrich(bars, p)
	if err != nil {
		return nil, fmt.Errorf("mode %s: %w", m.Name, err)
	}
	if m.Pretreat != nil {
		m.Pretreat(rows, op, t)
	}
	return rows, nil
}

// BuyRule compiles src, or the mode default when src is empty.
func (m *Mode) BuyRule(src string) *Rule {
	if src == "" {
		src = m.Policy.DefaultBuy
	}
	return Compile(src, m.Buy, m.composition())
}

// SellRule compiles src, or the mode default when src is empty.
func (m *Mode) SellRule(src string) *Rule {
	if src == "" {
		src = m.Policy.DefaultSell
	}
	return Compile(src, m.Sell, m.composition())
}

func (m *Mode) composition() Composition {
	if m.Policy.Composition == "" {
		return CompositionExpression
	}
	return m.Policy.Composition
}

// Indexes returns the row indexes a pretreatment visits for op.
func Indexes(rows []indicator.Row, op Operate) []int {
	if len(rows) == 0 {
		return nil
	}
	if op != OperateBacktest {
		return []int{len(rows) - 1}
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// ErrUnknownMode is returned by Catalog.Get for an unregistered name.
var ErrUnknownMode = errors.New("unknown strategy mode")

// Catalog is the immutable set of modes available to a process.
type Catalog struct {
	modes map[string]*Mode
}

// NewCatalog indexes modes by name. Later duplicates win.
func NewCatalog(modes ...*Mode) *Catalog {
	c := &Catalog{modes: make(map[string]*Mode, len(modes))}
	for _, m := range modes {
		c.modes[m.Name] = m
	}
	return c
}

// Get retrieves a mode by name.
func (c *Catalog) Get(name string) (*Mode, error) {
	m, ok := c.modes[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownMode, name, c.List())
	}
	return m, nil
}

// List returns a sorted slice of all mode names.
func (c *Catalog) List() []string {
	names := make([]string, 0, len(c.modes))
	for name := range c.modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
