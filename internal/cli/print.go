package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quantlab/backsim/backtest"
)

func PrintResult(w io.Writer, r *backtest.Result) {
	m := r.Metrics

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	if r.RiskConfig != "" {
		fmt.Fprintf(w, "Risk Config:   %s\n", r.RiskConfig)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", fmtDate(r.Start))
	fmt.Fprintf(w, "End:           %s\n", fmtDate(r.End))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", m.NumTrades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", m.WinRate)
	fmt.Fprintf(w, "Avg Win:       %.2f\n", m.AvgWin)
	fmt.Fprintf(w, "Avg Loss:      %.2f\n", m.AvgLoss)
	fmt.Fprintf(w, "Profit Factor: %.2f\n", m.ProfitFactor)
	fmt.Fprintf(w, "Win Streak:    %d\n", m.MaxConsecutiveWins)
	fmt.Fprintf(w, "Loss Streak:   %d\n", m.MaxConsecutiveLosses)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", r.InitialCapital)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", m.FinalEquity)
	fmt.Fprintf(w, "Return:        %.2f%%\n", m.TotalReturn)
	fmt.Fprintf(w, "CAGR:          %.2f%%\n", m.CAGR)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", m.MaxDrawdown)
	fmt.Fprintf(w, "Volatility:    %.2f%%\n", m.Volatility)
	fmt.Fprintf(w, "Sharpe Ratio:  %.2f\n", m.SharpeRatio)

	if r.RiskStats.Resizes > 0 || r.RiskStats.Rejections > 0 || r.RiskStats.ForcedExits > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Risk Activity")
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintf(w, "Resized:       %d\n", r.RiskStats.Resizes)
		fmt.Fprintf(w, "Rejected:      %d\n", r.RiskStats.Rejections)
		fmt.Fprintf(w, "Forced Exits:  %d\n", r.RiskStats.ForcedExits)
	}

	fmt.Fprintln(w)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "(open)"
	}
	return t.Format("2006-01-02")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
