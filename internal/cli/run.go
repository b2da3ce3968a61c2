package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantlab/backsim/backtest"
	"github.com/quantlab/backsim/config"
	"github.com/quantlab/backsim/journal"
	"github.com/quantlab/backsim/strategies"
)

func newRunCmd(rc *rootConfig) *cobra.Command {
	var (
		strategy string
		params   []string
		csvPath  string
		symbols  []string
		fromStr  string
		toStr    string
		capital  float64
		closeEnd bool
		noSave   bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest from a config file or flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()

			if rc.ConfigPath != "" {
				loaded, err := config.LoadFromFile(rc.ConfigPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			// Flags override the file.
			if strategy != "" {
				cfg.Strategy.Name = strategy
			}
			if len(params) > 0 {
				p, err := parseParams(params)
				if err != nil {
					return err
				}
				cfg.Strategy.Params = p
			}
			if csvPath != "" {
				cfg.Data.CSVPath = csvPath
			}
			if len(symbols) > 0 {
				cfg.Data.Symbols = symbols
			}
			if fromStr != "" {
				cfg.Run.Start = fromStr
			}
			if toStr != "" {
				cfg.Run.End = toStr
			}
			if cmd.Flags().Changed("capital") {
				cfg.Run.InitialCapital = capital
			}
			if cmd.Flags().Changed("close-end") {
				cfg.Run.CloseEnd = closeEnd
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			runCfg, err := cfg.BacktestConfig()
			if err != nil {
				return err
			}
			runCfg.Logger = rc.logger

			feed, err := cfg.Feed()
			if err != nil {
				return err
			}

			result, err := backtest.Run(runCfg, feed)
			if err != nil {
				return err
			}

			if jsonOut {
				if err := printJSON(os.Stdout, result); err != nil {
					return err
				}
			} else {
				PrintResult(os.Stdout, result)
			}

			if noSave {
				return nil
			}
			j, err := openJournal(rc, cfg)
			if err != nil {
				return err
			}
			if j == nil {
				return nil
			}
			defer j.Close()

			if err := backtest.SaveResult(j, result); err != nil {
				return err
			}
			rc.logger.Info("run saved", "run_id", result.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Strategy name ("+strings.Join(strategies.List(), ", ")+")")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Strategy parameter key=value (repeatable)")
	cmd.Flags().StringVar(&csvPath, "bars", "", "CSV bar file")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols to include (default: all in the file)")
	cmd.Flags().StringVar(&fromStr, "from", "", "Start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&toStr, "to", "", "End date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().Float64Var(&capital, "capital", 100000, "Initial capital")
	cmd.Flags().BoolVar(&closeEnd, "close-end", true, "Liquidate open positions at the final bar")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Skip journaling the run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full result as JSON")

	return cmd
}

// openJournal picks the backend from config, with --db as the sqlite path
// override. A "none" journal returns nil.
func openJournal(rc *rootConfig, cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "", "none":
		return nil, nil
	case "sqlite":
		path := cfg.Journal.DBPath
		if rc.DBPath != "" {
			path = rc.DBPath
		}
		return journal.NewSQLite(path)
	case "csv":
		return journal.NewCSV(cfg.Journal.CSVDir)
	}
	return nil, fmt.Errorf("unknown journal type %q", cfg.Journal.Type)
}

func parseParams(kvs []string) (strategies.Params, error) {
	p := strategies.Params{}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("bad --param %q: want key=value", kv)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("bad --param %q: %w", kv, err)
		}
		p[strings.TrimSpace(k)] = x
	}
	return p, nil
}
