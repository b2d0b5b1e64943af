// Package engine runs strategy rules over enriched bar series: full-history
// backtests and as-of-latest buy and sell predictions.
package engine

import (
	"time"

	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/indicator"
	"yupan/internal/strategy"
)

// Options configures a Simulator.
type Options struct {
	StartingCash float64
	// BurnIn is the number of leading bars skipped so that indicators
	// settle.
	BurnIn       int
	Cost         CostModel
	Execution    strategy.Execution
	OpenPosition strategy.OpenPosition
}

// DefaultOptions starts with 10000 in cash and skips 21 bars.
func DefaultOptions() Options {
	return Options{
		StartingCash: 10000,
		BurnIn:       21,
		Cost:         DefaultCostModel(),
		Execution:    strategy.ExecuteClose,
		OpenPosition: strategy.OpenMarkAtEntry,
	}
}

// OptionsFromConfig builds Options from the backtest section. Execution and
// open-position policy stay empty unless configured so that ForMode can
// fill them from the mode.
func OptionsFromConfig(cfg config.BacktestConfig) Options {
	return Options{
		StartingCash: cfg.StartingCash,
		BurnIn:       cfg.BurnIn,
		Cost: CostModel{
			Rate:          cfg.CommissionRate,
			MinCommission: cfg.MinCommission,
			LotSize:       cfg.LotSize,
		},
		Execution:    strategy.Execution(cfg.Execution),
		OpenPosition: strategy.OpenPosition(cfg.OpenPosition),
	}
}

// ForMode fills unset policy fields from the mode's policy.
func (o Options) ForMode(m *strategy.Mode) Options {
	if o.Execution == "" {
		o.Execution = m.Policy.Execution
	}
	if o.OpenPosition == "" {
		o.OpenPosition = m.Policy.OpenPosition
	}
	if o.Execution == "" {
		o.Execution = strategy.ExecuteClose
	}
	if o.OpenPosition == "" {
		o.OpenPosition = strategy.OpenMarkAtEntry
	}
	return o
}

// Summary aggregates one backtest.
type Summary struct {
	ReturnPct   float64 `json:"return_pct"`
	Operations  int     `json:"operations"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	FinalCash   float64 `json:"final_cash"`
	OpenCapital float64 `json:"open_capital"`
	Holding     bool    `json:"holding"`
}

// Result is a backtest's ledger and summary.
type Result struct {
	Trades  []domain.Trade `json:"trades"`
	Summary Summary        `json:"summary"`
}

// Simulator walks enriched rows through the flat/holding state machine.
// It holds no per-run state and is safe for concurrent use.
type Simulator struct {
	opts Options
}

// NewSimulator creates a Simulator.
func NewSimulator(opts Options) *Simulator {
	return &Simulator{opts: opts}
}

// Options returns the simulator's options.
func (s *Simulator) Options() Options { return s.opts }

// Backtest runs buy and sell over rows in ascending order.
func (s *Simulator) Backtest(rows []indicator.Row, buy, sell *strategy.Rule) Result {
	st := s.run(rows, buy, sell)
	return Result{Trades: st.Ledger, Summary: s.summarize(st)}
}

func (s *Simulator) run(rows []indicator.Row, buy, sell *strategy.Rule) *strategy.RunState {
	st := strategy.NewRunState(s.opts.StartingCash)

	var (
		pending     bool
		pendingDesc string
	)
	for i := range rows {
		if i < s.opts.BurnIn {
			continue
		}
		r := &rows[i]

		if pending {
			pending = false
			s.open(st, r, r.Open, pendingDesc)
		} else if !st.Holding {
			hit, desc := buy.Eval(r, st)
			if !hit {
				continue
			}
			if s.opts.Execution == strategy.ExecuteNextOpen {
				pending, pendingDesc = true, desc
				st.Held = []*indicator.Row{r}
				continue
			}
			st.Held = nil
			s.open(st, r, r.Close, desc)
			continue
		}

		st.DaysHeld++
		st.Held = append(st.Held, r)
		if hit, desc := sell.Eval(r, st); hit {
			s.close(st, r, r.Close, desc)
		}
	}
	if pending {
		st.Held = nil
	}

	if st.Holding && s.opts.OpenPosition == strategy.OpenForceClose && len(rows) > 0 {
		last := &rows[len(rows)-1]
		s.close(st, last, last.Close, "forced close")
	}
	return st
}

// open enters a position at price. The held window keeps a signal bar
// recorded by next-open execution and otherwise starts with r.
func (s *Simulator) open(st *strategy.RunState, r *indicator.Row, price float64, desc string) {
	shares := s.opts.Cost.LotShares(st.Cash, price)
	notional := float64(shares) * price
	fee := s.opts.Cost.Commission(notional)

	st.Holding = true
	st.Cash -= notional + fee
	st.EntryPrice = price
	st.EntryDate = r.Timestamp
	st.Shares = shares
	st.DaysHeld = 0
	if len(st.Held) == 0 {
		st.Held = []*indicator.Row{r}
	}
	st.Ledger = append(st.Ledger, domain.Trade{
		Side:        domain.SideBuy,
		Date:        r.Timestamp,
		Shares:      shares,
		Price:       price,
		Notional:    notional,
		Cash:        st.Cash,
		Commission:  fee,
		Description: desc,
	})
}

// close exits the position at price. A sell trade carries no remaining
// capital.
func (s *Simulator) close(st *strategy.RunState, r *indicator.Row, price float64, desc string) {
	proceeds := float64(st.Shares) * price
	fee := s.opts.Cost.Commission(proceeds)
	st.Cash += proceeds - fee

	var ret float64
	if st.EntryPrice != 0 {
		ret = (price - st.EntryPrice) * 100 / st.EntryPrice
	}
	if ret >= 0 {
		st.Wins++
	} else {
		st.Losses++
	}
	st.Ledger = append(st.Ledger, domain.Trade{
		Side:        domain.SideSell,
		Date:        r.Timestamp,
		Shares:      st.Shares,
		Price:       price,
		Cash:        st.Cash,
		ReturnPct:   ret,
		Commission:  fee,
		Description: desc,
	})

	st.Holding = false
	st.Shares = 0
	st.EntryPrice = 0
	st.EntryDate = time.Time{}
	st.DaysHeld = 0
	st.Held = nil
}

func (s *Simulator) summarize(st *strategy.RunState) Summary {
	sum := Summary{
		Operations: len(st.Ledger),
		Wins:       st.Wins,
		Losses:     st.Losses,
		FinalCash:  st.Cash,
		Holding:    st.Holding,
	}
	if st.Holding && s.opts.OpenPosition != strategy.OpenExclude {
		if last, ok := st.LastTrade(); ok {
			sum.OpenCapital = last.Notional
		}
	}
	if st.Base != 0 {
		sum.ReturnPct = (st.Cash + sum.OpenCapital - st.Base) * 100 / st.Base
	}
	return sum
}
