package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVJournal writes runs.csv, trades.csv, and equity.csv into one directory.
type CSVJournal struct {
	runs       *csv.Writer
	trades     *csv.Writer
	equity     *csv.Writer
	rf, tf, ef *os.File
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	rf, err := os.Create(filepath.Join(dir, "runs.csv"))
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(filepath.Join(dir, "trades.csv"))
	if err != nil {
		rf.Close()
		return nil, err
	}
	ef, err := os.Create(filepath.Join(dir, "equity.csv"))
	if err != nil {
		rf.Close()
		tf.Close()
		return nil, err
	}

	rw := csv.NewWriter(rf)
	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := rw.Write([]string{"run_id", "created", "strategy", "risk_config", "start_time", "end_time", "initial_capital", "final_equity", "total_return", "max_drawdown", "sharpe_ratio", "win_rate", "profit_factor", "num_trades"}); err != nil {
		return nil, err
	}
	if err := tw.Write([]string{"trade_id", "run_id", "symbol", "side", "quantity", "entry_price", "exit_price", "entry_time", "exit_time", "pnl", "pnl_pct", "status"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"run_id", "time", "equity", "cash", "positions_value"}); err != nil {
		return nil, err
	}

	for _, w := range []*csv.Writer{rw, tw, ew} {
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}

	return &CSVJournal{runs: rw, trades: tw, equity: ew, rf: rf, tf: tf, ef: ef}, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	err := j.runs.Write([]string{
		r.RunID,
		r.Created.Format(time.RFC3339),
		r.Strategy,
		r.RiskConfig,
		r.Start.Format(time.RFC3339),
		r.End.Format(time.RFC3339),
		f(r.InitialCapital),
		f(r.FinalEquity),
		f(r.TotalReturn),
		f(r.MaxDrawdown),
		f(r.SharpeRatio),
		f(r.WinRate),
		f(r.ProfitFactor),
		strconv.Itoa(r.NumTrades),
	})
	if err != nil {
		return err
	}
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.RunID,
		t.Symbol,
		t.Side,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.PnL),
		f(t.PnLPct),
		t.Status,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquityRecord) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		f(e.Equity),
		f(e.Cash),
		f(e.PositionsValue),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.runs, j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, fh := range []*os.File{j.rf, j.tf, j.ef} {
		if err := fh.Close(); err != nil {
			return err
		}
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
