package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/backsim/journal"
)

func newJournalCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded backtest runs",
	}

	cmd.AddCommand(newJournalListCmd(rc), newJournalShowCmd(rc))
	return cmd
}

func newJournalListCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(rc.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}

			fmt.Printf("%-26s  %-14s  %-10s  %10s  %8s  %6s\n",
				"RUN ID", "STRATEGY", "CREATED", "RETURN%", "MAXDD%", "TRADES")
			for _, r := range runs {
				fmt.Printf("%-26s  %-14s  %-10s  %10.2f  %8.2f  %6d\n",
					r.RunID, r.Strategy, r.Created.Format("2006-01-02"),
					r.TotalReturn, r.MaxDrawdown, r.NumTrades)
			}
			return nil
		},
	}
}

func newJournalShowCmd(rc *rootConfig) *cobra.Command {
	var withTrades bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's summary and trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(rc.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(args[0])
			if err != nil {
				return err
			}

			w := os.Stdout
			fmt.Fprintf(w, "Run ID:        %s\n", run.RunID)
			fmt.Fprintf(w, "Created:       %s\n", run.Created.Format(time.RFC3339))
			fmt.Fprintf(w, "Strategy:      %s\n", run.Strategy)
			fmt.Fprintf(w, "Risk Config:   %s\n", run.RiskConfig)
			fmt.Fprintf(w, "Period:        %s .. %s\n", fmtDate(run.Start), fmtDate(run.End))
			fmt.Fprintf(w, "Start Capital: %.2f\n", run.InitialCapital)
			fmt.Fprintf(w, "Final Equity:  %.2f\n", run.FinalEquity)
			fmt.Fprintf(w, "Return:        %.2f%%\n", run.TotalReturn)
			fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", run.MaxDrawdown)
			fmt.Fprintf(w, "Sharpe Ratio:  %.2f\n", run.SharpeRatio)
			fmt.Fprintf(w, "Win Rate:      %.2f%%\n", run.WinRate)
			fmt.Fprintf(w, "Profit Factor: %.2f\n", run.ProfitFactor)
			fmt.Fprintf(w, "Trades:        %d\n", run.NumTrades)

			if !withTrades {
				return nil
			}

			trades, err := j.ListTrades(run.RunID)
			if err != nil {
				return err
			}
			if len(trades) == 0 {
				return nil
			}

			fmt.Fprintln(w)
			fmt.Fprintf(w, "%-8s  %-4s  %10s  %10s  %10s  %10s  %-10s\n",
				"SYMBOL", "SIDE", "QTY", "ENTRY", "EXIT", "PNL", "EXIT DATE")
			for _, t := range trades {
				fmt.Fprintf(w, "%-8s  %-4s  %10.2f  %10.2f  %10.2f  %10.2f  %-10s\n",
					t.Symbol, t.Side, t.Quantity, t.EntryPrice, t.ExitPrice,
					t.PnL, t.ExitTime.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withTrades, "trades", false, "Include the trade list")
	return cmd
}
