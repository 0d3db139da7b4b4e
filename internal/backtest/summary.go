package backtest

import (
	"fmt"
	"strings"
)

// Summary renders the results as a plain-text report suitable for terminal
// output.
func (r *Results) Summary() string {
	var b strings.Builder
	b.WriteString("==================== Backtest Results ====================\n")
	if first, last := r.Span(); !first.IsZero() {
		fmt.Fprintf(&b, "Period:          %s .. %s (%d trading days)\n",
			first.Format("2006-01-02"), last.Format("2006-01-02"), len(r.History))
	}
	fmt.Fprintf(&b, "Initial capital: %.2f\n", r.InitialCapital)
	fmt.Fprintf(&b, "Final value:     %.2f\n", r.FinalValue)
	fmt.Fprintf(&b, "Total return:    %.2f%%\n", r.TotalReturn*100)
	fmt.Fprintf(&b, "Annual return:   %.2f%%\n", r.AnnualReturn*100)
	fmt.Fprintf(&b, "Max drawdown:    %.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(&b, "Sharpe ratio:    %.2f\n", r.SharpeRatio)
	fmt.Fprintf(&b, "Win rate:        %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(&b, "Trades:          %d\n", r.TotalTrades)
	b.WriteString("===========================================================\n")
	return b.String()
}
