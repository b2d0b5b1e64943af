package engine

import (
	"time"

	"yupan/internal/domain"
	"yupan/internal/indicator"
	"yupan/internal/strategy"
	"yupan/internal/util"
)

// Signal is the outcome of a prediction.
type Signal struct {
	Hit         bool      `json:"hit"`
	Date        time.Time `json:"date"`
	Close       float64   `json:"close"`
	Description string    `json:"description"`
}

// PredictBuy evaluates the buy rule on the last row, or on the row dated
// target when target is set. An absent target yields
// domain.ErrDateNotFound.
func (s *Simulator) PredictBuy(rows []indicator.Row, buy *strategy.Rule, target string) (Signal, error) {
	if len(rows) == 0 {
		return Signal{}, domain.ErrDataUnavailable
	}
	i := len(rows) - 1
	if target != "" {
		var err error
		if i, err = indicator.IndexOfDate(rows, target); err != nil {
			return Signal{}, err
		}
	}
	r := &rows[i]
	hit, desc := buy.Eval(r, strategy.NewRunState(s.opts.StartingCash))
	return Signal{Hit: hit, Date: r.Timestamp, Close: r.Close, Description: desc}, nil
}

// SellWindow decides which sell dates count as fresh.
type SellWindow struct {
	// Now anchors the window. Sessions are the weekdays strictly before it.
	Now      time.Time
	Sessions int
	// Target, when set, replaces the window with that single date.
	Target string
}

// PredictSell runs a full backtest and hits when the last ledger entry is
// a sell inside the window.
func (s *Simulator) PredictSell(rows []indicator.Row, buy, sell *strategy.Rule, w SellWindow) (Signal, error) {
	if len(rows) == 0 {
		return Signal{}, domain.ErrDataUnavailable
	}
	st := s.run(rows, buy, sell)
	last, ok := st.LastTrade()
	if !ok || last.Side != domain.SideSell {
		return Signal{}, nil
	}

	sig := Signal{Date: last.Date, Close: last.Price, Description: last.Description}
	if w.Target != "" {
		want, err := domain.ParseDate(w.Target)
		if err != nil {
			return Signal{}, err
		}
		sig.Hit = domain.SameDay(last.Date, want)
		return sig, nil
	}
	for _, d := range util.LastTradingDays(w.Now, w.Sessions) {
		if domain.SameDay(last.Date, d) {
			sig.Hit = true
			break
		}
	}
	return sig, nil
}
