// Package report renders backtest ledgers and sweep results for the
// terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"yupan/internal/domain"
	"yupan/internal/engine"
	"yupan/internal/sweep"
)

var (
	buyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	sellStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	symbolStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	ruleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func pctStyle(p float64) lipgloss.Style {
	if p < 0 {
		return lossStyle
	}
	return gainStyle
}

func rule() string { return ruleStyle.Render(strings.Repeat("=", 40)) }

// WriteBacktest writes the ledger followed by the summary.
func WriteBacktest(w io.Writer, rep *engine.Report) error {
	var b strings.Builder
	for _, t := range rep.Trades {
		side := buyStyle.Render("BUY ")
		if t.Side == domain.SideSell {
			side = sellStyle.Render("SELL")
		}
		fmt.Fprintf(&b, "%s %s  %s @ %s", side, t.Date.Format(domain.DateLayout), FormatInt(t.Shares), FormatPrice(t.Price))
		if t.Side == domain.SideSell {
			fmt.Fprintf(&b, "  %s", pctStyle(t.ReturnPct).Render(FormatPct(t.ReturnPct)))
		}
		fmt.Fprintf(&b, "  position %s  cash %.2f  fee %.2f\n", FormatInt(int64(t.Notional)), t.Cash, t.Commission)
		fmt.Fprintf(&b, "     %s\n", dimStyle.Render(t.Description))
		if t.Side == domain.SideSell {
			b.WriteByte('\n')
		}
	}

	s := rep.Summary
	b.WriteString(rule() + "\n")
	fmt.Fprintf(&b, "symbol:   %s %s\n", symbolStyle.Render(rep.Symbol), rep.Name)
	fmt.Fprintf(&b, "mode:     %s\n", rep.Mode)
	fmt.Fprintf(&b, "buy:      %s\n", rep.Buy)
	fmt.Fprintf(&b, "sell:     %s\n", rep.Sell)
	fmt.Fprintf(&b, "return:   %s\n", pctStyle(s.ReturnPct).Render(FormatPct(s.ReturnPct)))
	fmt.Fprintf(&b, "rounds:   %d, won %d\n", s.Wins+s.Losses, s.Wins)
	if s.Holding {
		fmt.Fprintf(&b, "holding:  %s at entry\n", FormatAmount(s.OpenCapital))
	}
	fmt.Fprintf(&b, "run:      %s\n", dimStyle.Render(rep.RunID))
	b.WriteString(rule() + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSweep writes a sweep's recommendations, backtests and failures.
func WriteSweep(w io.Writer, rep *sweep.Report) error {
	var b strings.Builder
	title := fmt.Sprintf("%s: %d symbols, %d ok, %d skipped, %d failed",
		rep.Operate, rep.Symbols, rep.Succeeded, rep.Skipped, rep.Failed)
	if rep.Cached {
		title += " (cached)"
	}
	if rep.Partial {
		title += " (partial)"
	}
	b.WriteString(headerStyle.Render(title) + "\n")

	for _, r := range rep.Recommendations {
		side := buyStyle.Render("BUY ")
		if r.Operate == "sell" {
			side = sellStyle.Render("SELL")
		}
		fmt.Fprintf(&b, "%s %s %s  %s  close %s  cap %s  prev amount %s\n",
			side, symbolStyle.Render(r.Symbol), r.Name, r.Date.Format(domain.DateLayout),
			FormatPrice(r.Close), FormatAmount(r.MarketCap), FormatAmount(r.PrevAmount))
		fmt.Fprintf(&b, "     %s\n", dimStyle.Render(r.Description))
	}
	for _, bt := range rep.Backtests {
		s := bt.Summary
		fmt.Fprintf(&b, "%s %s  %s  rounds %d won %d\n",
			symbolStyle.Render(bt.Symbol), bt.Name, pctStyle(s.ReturnPct).Render(FormatPct(s.ReturnPct)), s.Wins+s.Losses, s.Wins)
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(&b, "%s %s: %s\n", lossStyle.Render("FAIL"), f.Symbol, f.Reason)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
