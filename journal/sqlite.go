package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, strategy, risk_config, start_time, end_time,
		 initial_capital, final_equity, total_return, max_drawdown,
		 sharpe_ratio, win_rate, profit_factor, num_trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.RiskConfig, r.Start, r.End,
		r.InitialCapital, r.FinalEquity, r.TotalReturn, r.MaxDrawdown,
		r.SharpeRatio, r.WinRate, r.ProfitFactor, r.NumTrades,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, symbol, side, quantity, entry_price, exit_price,
		 entry_time, exit_time, pnl, pnl_pct, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Symbol, t.Side, t.Quantity, t.EntryPrice,
		t.ExitPrice, t.EntryTime, t.ExitTime, t.PnL, t.PnLPct, t.Status,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, equity, cash, positions_value)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Equity, e.Cash, e.PositionsValue,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
