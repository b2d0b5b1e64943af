package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/indicator"
	"yupan/internal/loader"
	"yupan/internal/store"
	"yupan/internal/strategy"
)

// Request describes one simulation over one symbol.
type Request struct {
	Symbol    string             `json:"symbol"`
	Interval  domain.Interval    `json:"interval"`
	Operate   strategy.Operate   `json:"operate"`
	Mode      string             `json:"mode"`
	Tuning    string             `json:"tuning,omitempty"`
	Buy       string             `json:"buy,omitempty"`
	Sell      string             `json:"sell,omitempty"`
	Condition string             `json:"condition,omitempty"`
	Execution strategy.Execution `json:"execution,omitempty"`
	// TargetDate ends the series and, for predictions, names the session
	// to evaluate.
	TargetDate string `json:"target_date,omitempty"`
}

// Report is the outcome of Runner.Backtest.
type Report struct {
	RunID  string `json:"run_id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Buy    string `json:"buy"`
	Sell   string `json:"sell"`
	Result
}

// Recommendation is a prediction hit.
type Recommendation struct {
	Symbol      string           `json:"symbol"`
	Name        string           `json:"name"`
	Operate     strategy.Operate `json:"operate"`
	Date        time.Time        `json:"date"`
	Close       float64          `json:"close"`
	MarketCap   float64          `json:"market_cap"`
	PrevAmount  float64          `json:"prev_amount"`
	Description string           `json:"description"`
}

// Line renders r on one line.
func (r Recommendation) Line() string {
	return fmt.Sprintf("%s %s %s %s close=%.2f cap=%.4g prev_amount=%.4g %s",
		r.Operate, r.Symbol, r.Name, r.Date.Format(domain.DateLayout), r.Close, r.MarketCap, r.PrevAmount, r.Description)
}

// Runner loads a symbol, screens it, prepares its rows for the selected mode
// and runs the simulator.
type Runner struct {
	cfg     *config.Config
	catalog *strategy.Catalog
	loader  *loader.Loader
	ledger  store.LedgerStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner creates a Runner. ledger may be nil, in which case ledgers are
// never persisted.
func NewRunner(cfg *config.Config, catalog *strategy.Catalog, ld *loader.Loader, ledger store.LedgerStore, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		catalog: catalog,
		loader:  ld,
		ledger:  ledger,
		logger:  logger.With("component", "runner"),
		now:     time.Now,
	}
}

// SetClock replaces the clock used to anchor sell predictions.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// Catalog returns the modes the runner resolves.
func (r *Runner) Catalog() *strategy.Catalog { return r.catalog }

// Backtest runs the full-history simulation for req.
func (r *Runner) Backtest(ctx context.Context, req Request) (*Report, error) {
	mode, stock, err := r.load(ctx, req)
	if err != nil {
		return nil, err
	}
	rows, err := mode.Prepare(stock.Bars, strategy.OperateBacktest, req.Tuning)
	if err != nil {
		return nil, err
	}
	buy, sell := mode.BuyRule(req.Buy), mode.SellRule(req.Sell)
	res := r.simulator(mode, req).Backtest(rows, buy, sell)

	rep := &Report{
		RunID:  uuid.NewString(),
		Symbol: stock.Info.Symbol,
		Name:   stock.Info.Name,
		Mode:   mode.Name,
		Buy:    buy.String(),
		Sell:   sell.String(),
		Result: res,
	}
	if r.cfg.Backtest.PersistLedger && r.ledger != nil {
		if err := r.ledger.SaveLedger(ctx, rep.RunID, rep.Symbol, rep.Mode, res.Trades); err != nil {
			return nil, fmt.Errorf("saving ledger for %s: %w", rep.Symbol, err)
		}
	}
	r.logger.Debug("backtest done", "symbol", rep.Symbol, "mode", rep.Mode,
		"return_pct", res.Summary.ReturnPct, "operations", res.Summary.Operations)
	return rep, nil
}

// Predict evaluates req.Operate (buy or sell) and returns a recommendation
// on a hit, or nil.
func (r *Runner) Predict(ctx context.Context, req Request) (*Recommendation, error) {
	mode, stock, err := r.load(ctx, req)
	if err != nil {
		return nil, err
	}
	sim := r.simulator(mode, req)

	var sig Signal
	switch req.Operate {
	case strategy.OperateBuy:
		var rows []indicator.Row
		if rows, err = mode.Prepare(stock.Bars, strategy.OperateBuy, req.Tuning); err != nil {
			return nil, err
		}
		sig, err = sim.PredictBuy(rows, mode.BuyRule(req.Buy), req.TargetDate)
	case strategy.OperateSell:
		// The simulation replays the full history, so every row needs its
		// window columns.
		var rows []indicator.Row
		if rows, err = mode.Prepare(stock.Bars, strategy.OperateBacktest, req.Tuning); err != nil {
			return nil, err
		}
		sig, err = sim.PredictSell(rows, mode.BuyRule(req.Buy), mode.SellRule(req.Sell), SellWindow{
			Now:      r.now(),
			Sessions: r.cfg.Sweep.SellSessions,
			Target:   req.TargetDate,
		})
	default:
		return nil, fmt.Errorf("predict: unsupported operate %q", req.Operate)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stock.Info.Symbol, err)
	}
	if !sig.Hit {
		return nil, nil
	}
	return &Recommendation{
		Symbol:      stock.Info.Symbol,
		Name:        stock.Info.Name,
		Operate:     req.Operate,
		Date:        sig.Date,
		Close:       sig.Close,
		MarketCap:   stock.MarketCap,
		PrevAmount:  stock.PrevAmount,
		Description: sig.Description,
	}, nil
}

func (r *Runner) simulator(mode *strategy.Mode, req Request) *Simulator {
	opts := OptionsFromConfig(r.cfg.Backtest)
	if req.Execution != "" {
		opts.Execution = req.Execution
	}
	return NewSimulator(opts.ForMode(mode))
}

// load resolves the mode, loads the stock up to the target date and applies
// the screen. The market-cap floor comes from the condition, then the
// "market_cap" tuning key, then the mode, then configuration.
func (r *Runner) load(ctx context.Context, req Request) (*strategy.Mode, *domain.Stock, error) {
	name := req.Mode
	if name == "" {
		name = r.cfg.Strategy.DefaultMode
	}
	mode, err := r.catalog.Get(name)
	if err != nil {
		return nil, nil, err
	}
	if _, err := strategy.ParseExecution(string(req.Execution)); err != nil {
		return nil, nil, err
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	cond, err := loader.ParseCondition(req.Condition)
	if err != nil {
		return nil, nil, err
	}

	var end time.Time
	if req.TargetDate != "" {
		if end, err = domain.ParseDate(req.TargetDate); err != nil {
			return nil, nil, err
		}
	}
	interval := req.Interval
	if interval == "" {
		interval = domain.IntervalDaily
	}
	stock, err := r.loader.Load(ctx, req.Symbol, interval, end)
	if err != nil {
		return nil, nil, err
	}
	if stock.Info.Symbol == "" {
		stock.Info.Symbol = req.Symbol
	}

	floor := mode.Policy.MarketCapFloor
	if floor == 0 {
		floor = r.cfg.Strategy.MarketCapFloor
	}
	floor = indicator.ParseTuning(req.Tuning).Float(floor, "market_cap")
	if err := cond.WithFloor(floor).Screen(stock); err != nil {
		r.logger.Debug("screened out", "symbol", req.Symbol, "error", err)
		return nil, nil, err
	}
	return mode, stock, nil
}
